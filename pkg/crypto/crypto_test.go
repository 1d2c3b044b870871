package crypto

import "testing"

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	if !VerifyPassword(hash, "secret") {
		t.Fatal("expected password verification to succeed")
	}

	if VerifyPassword(hash, "incorrect") {
		t.Fatal("expected password verification to fail")
	}
}

func TestRandomToken(t *testing.T) {
	one, err := RandomToken(32)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	two, err := RandomToken(32)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	if one == two {
		t.Fatal("expected random tokens to differ")
	}
	if len(one) == 0 {
		t.Fatal("expected non-empty token")
	}
}
