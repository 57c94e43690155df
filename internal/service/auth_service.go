package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"habittracker/internal/apperror"
	"habittracker/internal/model"
	"habittracker/internal/util"
)

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	hasLetter  = regexp.MustCompile(`[A-Za-z]`)
	hasDigit   = regexp.MustCompile(`[0-9]`)
)

// invalidCredentials is returned for both unknown identifier and wrong
// password so a caller cannot probe which one was wrong.
const invalidCredentials = "Invalid credentials"

type AuthService struct {
	userRepo  UserRepository
	jwtSecret string
	logger    *zap.Logger
}

func NewAuthService(userRepo UserRepository, jwtSecret string, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// AuthResult is what register and login hand back to the HTTP layer.
type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register validates the credentials, persists the user, and issues a token.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	fields := map[string]string{}
	if !usernameRe.MatchString(username) {
		fields["username"] = "username must be 3-30 characters of letters, digits or underscore"
	}
	if !emailRe.MatchString(email) {
		fields["email"] = "email must be a valid address"
	}
	if len(password) < 6 || !hasLetter.MatchString(password) || !hasDigit.MatchString(password) {
		fields["password"] = "password must be at least 6 characters and contain a letter and a digit"
	}
	if len(fields) > 0 {
		return nil, apperror.Validation("invalid registration data", fields)
	}

	taken, err := s.userRepo.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		s.logger.Error("Failed to check existing user", zap.Error(err))
		return nil, err
	}
	if taken {
		return nil, apperror.Conflict("username or email already taken")
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	// The repo maps an insert race on the unique indexes to the same
	// conflict error as the pre-check.
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}

	token, err := util.GenerateJWT(u.ID, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.Int("user_id", u.ID), zap.String("username", u.Username))
	return &AuthResult{Token: token, User: u}, nil
}

// Login checks credentials against a username or email identifier.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperror.Auth(invalidCredentials)
	}

	u, err := s.userRepo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Auth(invalidCredentials)
		}
		return nil, err
	}

	if !util.CheckPassword(password, u.PasswordHash) {
		return nil, apperror.Auth(invalidCredentials)
	}

	token, err := util.GenerateJWT(u.ID, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &AuthResult{Token: token, User: u}, nil
}

// Me returns the public fields of the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID int) (*model.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}
