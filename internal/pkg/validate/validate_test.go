package validate

import (
	"strings"
	"testing"
)

type sampleRequest struct {
	Address string `validate:"required,eth_address"`
	Nonce   string `validate:"required"`
}

func TestStructReportsEveryFailingField(t *testing.T) {
	err := Struct(sampleRequest{Address: "not-an-address"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "Address") {
		t.Fatalf("error should name Address field: %v", err)
	}
	if !strings.Contains(err.Error(), "Nonce") {
		t.Fatalf("error should name Nonce field: %v", err)
	}
}

func TestStructAcceptsValidRequest(t *testing.T) {
	err := Struct(sampleRequest{
		Address: "0xAbCdEf0123456789abcdef0123456789ABCDEF01",
		Nonce:   "f00d",
	})
	if err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestEthAddress(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"0xAbCdEf0123456789abcdef0123456789ABCDEF01", true},
		{"0xabc", false},
		{"AbCdEf0123456789abcdef0123456789ABCDEF01", false},
		{"0xZZZdEf0123456789abcdef0123456789ABCDEF01", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := EthAddress(tc.value); got != tc.want {
			t.Fatalf("EthAddress(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}
