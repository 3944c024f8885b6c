package dto

type ChallengeRequest struct {
	Address string `json:"address" validate:"required,eth_address"`
}

type ChallengeResponse struct {
	Address string `json:"address"`
	Nonce   string `json:"nonce"`
	Message string `json:"message"`
}

type LoginRequest struct {
	Address   string `json:"address" validate:"required,eth_address"`
	Nonce     string `json:"nonce" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

type RegisterRequest struct {
	Address   string `json:"address" validate:"required,eth_address"`
	Nonce     string `json:"nonce" validate:"required"`
	Signature string `json:"signature" validate:"required"`
	DID       string `json:"did" validate:"required"`
	PublicKey string `json:"publicKey" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type UserResponse struct {
	Address string `json:"address"`
	Role    string `json:"role"`
}

type AuthTokensResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
	User         UserResponse `json:"user"`
}

type RegisterResponse struct {
	AuthTokensResponse
	Identity IdentityResponse `json:"identity"`
	TxHash   string           `json:"txHash"`
}

type LogoutResponse struct {
	LoggedOut bool `json:"loggedOut"`
}
