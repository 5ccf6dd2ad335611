package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the bcrypt cost factor
	BcryptCost = 12

	// OperatorUser is the basic auth username the web interface expects
	OperatorUser = "operator"
)

// ErrEmptyPassword is returned when hashing an empty password
var ErrEmptyPassword = errors.New("password must not be empty")

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword verifies a password against a hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// ValidHash reports whether hash looks like a bcrypt hash
func ValidHash(hash string) bool {
	_, err := bcrypt.Cost([]byte(hash))
	return err == nil
}

// Operator verifies basic auth credentials against a single operator account.
// A zero Operator (no hash) accepts everything.
type Operator struct {
	user string
	hash string
}

// NewOperator creates an operator verifier for the given bcrypt hash
func NewOperator(hash string) *Operator {
	return &Operator{user: OperatorUser, hash: strings.TrimSpace(hash)}
}

// Enabled reports whether credentials are required
func (o *Operator) Enabled() bool {
	return o != nil && o.hash != ""
}

// Verify checks a username and password pair
func (o *Operator) Verify(user, password string) bool {
	if !o.Enabled() {
		return true
	}
	if subtle.ConstantTimeCompare([]byte(user), []byte(o.user)) != 1 {
		return false
	}
	return CheckPassword(password, o.hash)
}
