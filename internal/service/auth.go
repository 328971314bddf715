// Package service holds the business rules of the blog API.
//
// Handlers parse HTTP and call a service; a service validates input, enforces
// ownership and orchestrates the repositories, the blob store, the AI
// generator and the event publisher:
//
//	Handler (HTTP) → Service (rules) → Repository / blob.Store / ai.Generator / events.Publisher
//
// Services accept primitives and model types, never *http.Request, and report
// failures as apperror kinds that the handler layer maps to status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 20
	// maxUsernameAttempts bounds the numeric suffixes tried for a Google account
	// whose preferred username is taken.
	maxUsernameAttempts = 100
)

// AuthService registers accounts and issues session tokens.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the signed-in user and the session token so the handler
// can set the cookie and answer in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Identity is the part of the result that goes into the response body.
func (r *AuthResult) Identity() model.Identity {
	return model.Identity{ID: r.User.ID, Username: r.User.Username, Name: r.User.Name}
}

type registerInput struct {
	Username string `json:"username" validate:"required,min=3,max=20,username"`
	Name     string `json:"name"     validate:"required,max=50"`
	Password string `json:"password" validate:"required,min=8,password"`
}

// Register creates a password account. Every rule violation is reported in a
// single validation error; a taken username is a conflict.
func (s *AuthService) Register(ctx context.Context, username, name, password string) (*model.User, error) {
	in := registerInput{
		Username: strings.TrimSpace(username),
		Name:     strings.TrimSpace(name),
		Password: password,
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Username:     in.Username,
		Name:         in.Name,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user %q: %w", in.Username, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login verifies a username and password. Accounts created through Google
// sign-in have no password and cannot log in this way.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperror.ValidationErrors(missingCredentials(username, password))
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", username, err)
	}

	if user.PasswordHash == "" {
		return nil, apperror.Unauthorized("this account signs in with Google")
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized("invalid credentials")
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	s.upgradeHash(ctx, user, password)

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issue(user)
}

// upgradeHash re-hashes a verified password stored with an outdated cost. The
// login succeeds even when the upgrade fails.
func (s *AuthService) upgradeHash(ctx context.Context, user *model.User, password string) {
	if !s.passwords.NeedsRehash(user.PasswordHash) {
		return
	}
	hash, err := s.passwords.Hash(password)
	if err == nil {
		user.PasswordHash = hash
		err = s.users.UpdateUser(ctx, user)
	}
	if err != nil {
		s.logger.Warn("password rehash failed", slog.String("userID", user.ID), slog.String("error", err.Error()))
	}
}

func missingCredentials(username, password string) []apperror.FieldError {
	var fields []apperror.FieldError
	if username == "" {
		fields = append(fields, apperror.FieldError{Field: "username", Message: "username is required"})
	}
	if password == "" {
		fields = append(fields, apperror.FieldError{Field: "password", Message: "password is required"})
	}
	return fields
}

// LoginWithGoogle signs in the account linked to the Google subject, creating
// it on first sign-in.
//
// The username is derived from the e-mail local part; when it is taken a
// numeric suffix is appended until a free one is found.
func (s *AuthService) LoginWithGoogle(ctx context.Context, gu *auth.GoogleUser) (*AuthResult, error) {
	if gu == nil || gu.Sub == "" {
		return nil, fmt.Errorf("service/auth: google user must have a subject")
	}

	user, err := s.users.GetUserByGoogleID(ctx, gu.Sub)
	if err == nil {
		return s.issue(user)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up google account: %w", err)
	}

	user, err = s.createGoogleUser(ctx, gu)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered via Google",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return s.issue(user)
}

func (s *AuthService) createGoogleUser(ctx context.Context, gu *auth.GoogleUser) (*model.User, error) {
	base := usernameFromEmail(gu.Email)

	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		candidate := withSuffix(base, attempt)

		_, err := s.users.GetUserByUsername(ctx, candidate)
		if err == nil {
			continue
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/auth: checking username %q: %w", candidate, err)
		}

		name := strings.TrimSpace(gu.Name)
		if name == "" {
			name = candidate
		}
		if r := []rune(name); len(r) > MaxNameLength {
			name = string(r[:MaxNameLength])
		}

		user := &model.User{
			Username:   candidate,
			Name:       name,
			GoogleID:   gu.Sub,
			Email:      gu.Email,
			ProfileImg: gu.Picture,
		}
		err = s.users.CreateUser(ctx, user)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, fmt.Errorf("service/auth: creating google user: %w", err)
		}

		// Lost a race: either the username was just taken, or a concurrent
		// callback already linked this Google account.
		if existing, lookupErr := s.users.GetUserByGoogleID(ctx, gu.Sub); lookupErr == nil {
			return existing, nil
		}
	}
	return nil, apperror.Conflict("username", base)
}

// usernameFromEmail maps the e-mail local part onto the username charset.
func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")

	var b strings.Builder
	for _, r := range local {
		switch {
		case isUsernameRune(r):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '+':
			b.WriteByte('_')
		}
	}

	name := b.String()
	if len(name) < minUsernameLength {
		name = "user" + name
	}
	if len(name) > maxUsernameLength {
		name = name[:maxUsernameLength]
	}
	return name
}

// withSuffix appends n (when positive) and trims base so the result still
// fits the maximum username length.
func withSuffix(base string, n int) string {
	if n == 0 {
		return base
	}
	suffix := strconv.Itoa(n)
	if len(base)+len(suffix) > maxUsernameLength {
		base = base[:maxUsernameLength-len(suffix)]
	}
	return base + suffix
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(model.Identity{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// ValidateToken resolves a session token to the identity it carries.
func (s *AuthService) ValidateToken(tokenStr string) (*model.Identity, error) {
	id, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	return id, nil
}

// TokenTTL is the lifetime of issued tokens, used for the cookie expiry.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}
