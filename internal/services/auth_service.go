package services

import (
	"context"
	"errors"
	"strings"

	"dompet/internal/auth"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/ports"
)

type AuthService struct {
	users  ports.UserStore
	tokens *auth.Tokens
	logger *log.Logger
}

func NewAuthService(users ports.UserStore, tokens *auth.Tokens, logger *log.Logger) *AuthService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &AuthService{users: users, tokens: tokens, logger: logger.WithComponent(log.ComponentAuth)}
}

type SignUpInput struct {
	Email           string
	Username        string
	FullName        string
	Password        string
	ConfirmPassword string
}

// AuthResult is returned by sign-up and login.
type AuthResult struct {
	Token string
	User  core.User
}

func (in SignUpInput) Validate() error {
	if !strings.Contains(in.Email, "@") {
		return core.Invalid(core.ErrInvalidEmail)
	}
	if strings.TrimSpace(in.Username) == "" {
		return core.Invalid(core.ErrEmptyName)
	}
	if in.Password != in.ConfirmPassword {
		return core.Invalid(core.ErrPasswordMismatch)
	}
	return nil
}

// SignUp creates an account and returns a session token for it.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (AuthResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := in.Validate(); err != nil {
		return AuthResult{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return AuthResult{}, err
	}

	u, err := s.users.CreateUser(ctx, core.User{
		Email:        in.Email,
		Username:     in.Username,
		FullName:     strings.TrimSpace(in.FullName),
		PasswordHash: hash,
	})
	if err != nil {
		return AuthResult{}, core.Backend("create user", err)
	}
	s.logger.InfoContext(ctx, "User signed up", log.FieldUserID, u.ID)
	return s.issue(u)
}

// Login accepts either an email address or a username.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	var (
		u   core.User
		err error
	)
	if strings.Contains(identifier, "@") {
		u, err = s.users.GetUserByEmail(ctx, identifier)
	} else {
		u, err = s.users.GetUserByUsername(ctx, identifier)
	}
	if errors.Is(err, core.ErrNotFound) {
		return AuthResult{}, core.ErrUnauthorized
	}
	if err != nil {
		return AuthResult{}, core.Backend("find user", err)
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return AuthResult{}, err
	}
	return s.issue(u)
}

// UpdatePassword replaces the caller's password.
func (s *AuthService) UpdatePassword(ctx context.Context, sess core.Session, password, confirm string) error {
	if sess.UserID == "" {
		return core.ErrUnauthorized
	}
	if password != confirm {
		return core.Invalid(core.ErrPasswordMismatch)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, sess.UserID, hash); err != nil {
		return core.Backend("update password", err)
	}
	return nil
}

// Me returns the caller's profile.
func (s *AuthService) Me(ctx context.Context, sess core.Session) (core.User, error) {
	if sess.UserID == "" {
		return core.User{}, core.ErrUnauthorized
	}
	u, err := s.users.GetUser(ctx, sess.UserID)
	if err != nil {
		return core.User{}, core.Backend("get user", err)
	}
	return u, nil
}

func (s *AuthService) issue(u core.User) (AuthResult, error) {
	token, err := s.tokens.Issue(core.Session{UserID: u.ID, Username: u.Username})
	if err != nil {
		return AuthResult{}, err
	}
	u.PasswordHash = ""
	return AuthResult{Token: token, User: u}, nil
}
