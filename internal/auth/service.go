package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JustinTDCT/GuessTheMovie/internal/logging"
)

type Options struct {
	Secret []byte
	TTL    time.Duration
	// Providers maps a federated provider name to the HMAC secret its identity tokens are signed with.
	Providers map[string]string
}

// Service signs identities in and out and resolves session tokens back to users.
type Service struct {
	users     UserStore
	sessions  SessionStore
	secret    []byte
	ttl       time.Duration
	providers map[string][]byte
	now       func() time.Time
	log       *slog.Logger
}

func NewService(users UserStore, sessions SessionStore, opts Options) *Service {
	providers := make(map[string][]byte, len(opts.Providers))
	for name, secret := range opts.Providers {
		providers[strings.ToLower(name)] = []byte(secret)
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Service{
		users:     users,
		sessions:  sessions,
		secret:    opts.Secret,
		ttl:       ttl,
		providers: providers,
		now:       time.Now,
		log:       logging.Component("auth"),
	}
}

// Providers lists the configured federated provider names.
func (s *Service) Providers() []string {
	out := make([]string, 0, len(s.providers))
	for name := range s.providers {
		out = append(out, name)
	}
	return out
}

// SignUp creates a password account and returns it with a session token.
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (*User, string, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, "", err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, "", err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		Provider:     ProviderPassword,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, "", err
	}
	s.log.Info("account created", "user", u.ID, "provider", u.Provider)
	return s.startSession(u)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*User, string, error) {
	u, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if u.PasswordHash == "" || !CheckPassword(u.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}
	return s.startSession(u)
}

// SignInFederated verifies an identity token issued by a configured provider and
// signs in the account for its email claim, creating it on first use.
func (s *Service) SignInFederated(ctx context.Context, provider, idToken string) (*User, string, error) {
	provider = strings.ToLower(provider)
	secret, ok := s.providers[provider]
	if !ok {
		return nil, "", ErrUnknownProvider
	}
	var claims federatedClaims
	if err := parseHS256(idToken, secret, &claims, s.now); err != nil {
		return nil, "", err
	}
	email := NormalizeEmail(claims.Email)
	if err := ValidateEmail(email); err != nil {
		return nil, "", fmt.Errorf("%w: identity token has no usable email", ErrTokenInvalid)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		u = &User{
			ID:          uuid.NewString(),
			Email:       email,
			DisplayName: strings.TrimSpace(claims.Name),
			Provider:    provider,
			CreatedAt:   s.now().UTC(),
		}
		err = s.users.Create(ctx, u)
		if errors.Is(err, ErrEmailExists) {
			u, err = s.users.GetByEmail(ctx, email)
		} else if err == nil {
			s.log.Info("account created", "user", u.ID, "provider", provider)
		}
	}
	if err != nil {
		return nil, "", err
	}
	return s.startSession(u)
}

// SignOut revokes token. Tokens that are already expired need no revocation.
func (s *Service) SignOut(ctx context.Context, token string) error {
	var claims Claims
	err := parseHS256(token, s.secret, &claims, s.now)
	if errors.Is(err, ErrTokenExpired) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.sessions.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}
	s.log.Info("signed out", "user", claims.Subject)
	return nil
}

// Current resolves a session token to its user.
func (s *Service) Current(ctx context.Context, token string) (*User, error) {
	var claims Claims
	if err := parseHS256(token, s.secret, &claims, s.now); err != nil {
		return nil, err
	}
	revoked, err := s.sessions.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenInvalid
	}
	u, err := s.users.GetByID(ctx, claims.Subject)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrTokenInvalid
	}
	return u, err
}

// PurgeRevocations drops revocations for tokens that have expired anyway.
func (s *Service) PurgeRevocations(ctx context.Context) (int, error) {
	return s.sessions.Purge(ctx, s.now())
}

func (s *Service) startSession(u *User) (*User, string, error) {
	token, err := issueToken(s.secret, u, s.now(), s.ttl)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *Service) TTL() time.Duration { return s.ttl }
