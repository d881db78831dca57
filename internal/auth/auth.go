package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

// Provider name recorded for email/password accounts.
const ProviderPassword = "password"

// Messages are shown to the user verbatim.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrInvalidEmail       = errors.New("the email address is badly formatted")
	ErrTokenInvalid       = errors.New("session token is invalid")
	ErrTokenExpired       = errors.New("session token has expired")
	ErrUnknownProvider    = errors.New("sign-in provider is not configured")
	ErrUserNotFound       = errors.New("user not found")
)

// User is a signed-in identity. A nil *User is the anonymous identity.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	Provider     string    `json:"provider"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail accepts a bare address only, no display name.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

type contextKey struct{}

// WithIdentity returns a context carrying u. A nil u stores the anonymous identity.
func WithIdentity(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// FromContext returns the identity attached by WithIdentity, or nil when anonymous.
func FromContext(ctx context.Context) *User {
	u, _ := ctx.Value(contextKey{}).(*User)
	return u
}

// UserID is FromContext reduced to an id; empty when anonymous.
func UserID(ctx context.Context) string {
	if u := FromContext(ctx); u != nil {
		return u.ID
	}
	return ""
}
