package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	apperrors "github.com/akeren/clothiq-api/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt ignores anything past 72 bytes
	resetTokenBytes   = 32
)

// dummyHash is compared against when an email is unknown so sign-in takes
// the same time whether or not the account exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("clothiq-timing-equaliser"), bcrypt.DefaultCost)

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.NewInvalidRequestError(fmt.Sprintf("password must be at least %d characters", minPasswordLength), nil)
	}
	if len(password) > maxPasswordLength {
		return apperrors.NewInvalidRequestError(fmt.Sprintf("password must be at most %d bytes", maxPasswordLength), nil)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	if err := validatePassword(password); err != nil {
		return "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", apperrors.NewInvalidRequestError("password is too long", err)
		}
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hashed), nil
}

func passwordMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// newResetToken returns the URL-safe token mailed to the user and the
// digest that is stored.
func newResetToken() (token, digest string, err error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("could not generate reset token: %w", err)
	}

	token = base64.RawURLEncoding.EncodeToString(buf)
	return token, hashResetToken(token), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
