package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/kestrelhealth/radpoint/pkg/apperr"
)

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func CheckPassword(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// ValidatePassword enforces the account password policy: at least 8
// characters with an uppercase letter, a lowercase letter, and a digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return apperr.New(apperr.KindInvalidArgument, "password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper {
		return apperr.New(apperr.KindInvalidArgument, "password must contain at least one uppercase letter")
	}
	if !hasLower {
		return apperr.New(apperr.KindInvalidArgument, "password must contain at least one lowercase letter")
	}
	if !hasDigit {
		return apperr.New(apperr.KindInvalidArgument, "password must contain at least one digit")
	}
	return nil
}

const (
	tempPasswordLength = 12

	upperChars = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerChars = "abcdefghjkmnpqrstuvwxyz"
	digitChars = "23456789"
	allChars   = upperChars + lowerChars + digitChars
)

// GenerateTempPassword produces a random invite password that satisfies
// ValidatePassword. Ambiguous characters are excluded from the alphabet.
func GenerateTempPassword() (string, error) {
	buf := make([]byte, tempPasswordLength)

	// One guaranteed character from each required class, the rest drawn
	// from the full alphabet.
	classes := []string{upperChars, lowerChars, digitChars}
	for i := range buf {
		alphabet := allChars
		if i < len(classes) {
			alphabet = classes[i]
		}
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to generate temp password: %w", err)
		}
		buf[i] = alphabet[idx.Int64()]
	}

	// Shuffle so the class-guaranteed characters are not positional.
	for i := len(buf) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", fmt.Errorf("failed to generate temp password: %w", err)
		}
		buf[i], buf[j.Int64()] = buf[j.Int64()], buf[i]
	}

	return string(buf), nil
}
