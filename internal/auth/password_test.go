package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndCompare(t *testing.T) {
	// テストではコストを下げて高速化する
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret-pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash should differ from the password")
	}

	ok, err := h.Compare(hash, "s3cret-pass")
	if err != nil || !ok {
		t.Errorf("Compare(correct) = %v, %v", ok, err)
	}

	ok, err = h.Compare(hash, "wrong")
	if err != nil || ok {
		t.Errorf("Compare(wrong) = %v, %v", ok, err)
	}
}

func TestBcryptHasher_CompareMalformedHash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	if _, err := h.Compare("not-a-hash", "x"); err == nil {
		t.Error("expected error for malformed hash")
	}
}

func TestNewBcryptHasher_DefaultCost(t *testing.T) {
	if h := NewBcryptHasher(0); h.cost != DefaultBcryptCost {
		t.Errorf("cost = %d, want %d", h.cost, DefaultBcryptCost)
	}
}
