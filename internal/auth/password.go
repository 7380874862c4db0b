package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"dompet/internal/core"
)

// MinPasswordLength is the shortest password accepted at sign-up.
const MinPasswordLength = 6

func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", core.Invalid(core.ErrWeakPassword)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword returns ErrUnauthorized on mismatch.
func CheckPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return core.ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("compare password: %w", core.ErrUnauthorized)
	}
	return nil
}
