package service

import (
	"context"

	"quotely/internal/auth"
	"quotely/internal/models"
	"quotely/internal/repository"
	"quotely/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// AuthService registers users and exchanges credentials for tokens.
type AuthService struct {
	userRepo repository.UserRepository
	tokens   *auth.TokenManager
}

type CredentialsInput struct {
	Username string
	Password string
}

func NewAuthService(userRepo repository.UserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{userRepo: userRepo, tokens: tokens}
}

// Register creates the account and returns an access token for it.
func (s *AuthService) Register(ctx context.Context, in CredentialsInput) (string, error) {
	if err := validation.ValidateUsername(in.Username); err != nil {
		return "", models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return "", models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	user := &models.User{Username: in.Username, PasswordHash: string(hash)}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return "", err
	}

	return s.issue(user)
}

// Login returns a token when the username and password match. Unknown
// usernames and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, in CredentialsInput) (string, error) {
	if in.Username == "" || in.Password == "" {
		return "", models.NewValidationError("Username and password are required")
	}

	user, err := s.userRepo.GetByUsername(ctx, in.Username)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", models.NewUnauthorizedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return "", models.NewUnauthorizedError("Invalid credentials")
	}

	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (string, error) {
	token, err := s.tokens.Issue(auth.Identity{UserID: user.ID, Username: user.Username})
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return token, nil
}
