package service

import "testing"

func TestGenerateOTPShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateOTP()
		if err != nil {
			t.Fatalf("generate OTP: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q has %d digits, want 6", code, len(code))
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q contains non-digit", code)
			}
		}
	}
}

func TestVerifySecret(t *testing.T) {
	code, err := generateOTP()
	if err != nil {
		t.Fatalf("generate OTP: %v", err)
	}
	hash := hashSecret(code)

	if !verifySecret(code, hash) {
		t.Error("correct secret must verify")
	}
	if verifySecret("000000", hash) {
		t.Error("wrong secret must not verify")
	}
	if verifySecret(code, "") {
		t.Error("cleared hash must never verify")
	}
	if verifySecret("", hash) {
		t.Error("empty secret must not verify")
	}
}

func TestMagicTokensAreUnique(t *testing.T) {
	a, err := generateMagicToken()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	b, err := generateMagicToken()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if a == b {
		t.Error("two tokens must differ")
	}
	if len(a) < 32 {
		t.Errorf("token %q too short", a)
	}
}
