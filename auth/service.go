package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/agromitra/agromitra/apperr"
	"github.com/agromitra/agromitra/storage"
)

// UserStore is the slice of storage the auth service needs.
type UserStore interface {
	SaveUser(ctx context.Context, u *storage.User) error
	GetUser(ctx context.Context, id string) (*storage.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*storage.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// Service handles signup, login and account lookup. The same OTP flow
// serves both: sending an OTP to an unknown phone with a name and
// language creates the account.
type Service struct {
	users  UserStore
	otp    OTPSender
	tokens *TokenIssuer
	logger *slog.Logger
}

// NewService creates the auth service.
func NewService(users UserStore, otp OTPSender, tokens *TokenIssuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, otp: otp, tokens: tokens, logger: logger}
}

// SendOTP starts a login or signup. For a known phone, name and
// language must be absent; for an unknown phone they are required and
// an unverified account is created before the OTP goes out.
func (s *Service) SendOTP(ctx context.Context, phone, name, language string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", apperr.BadRequest("Phone is required.")
	}

	user, err := s.users.GetUserByPhone(ctx, phone)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", apperr.Internal(err)
	}

	message := "OTP sent successfully."
	switch {
	case user != nil && name != "" && language != "":
		return "", apperr.Conflict("User already exists.")
	case user == nil:
		if name == "" || language == "" {
			return "", apperr.BadRequest("Name and language are required for new users.")
		}
		if err := s.users.SaveUser(ctx, storage.NewUser(phone, name, language)); err != nil {
			return "", apperr.Internal(err)
		}
		message = "User created. OTP sent successfully."
	}

	if err := s.otp.Send(ctx, phone); err != nil {
		return "", apperr.Internal(err)
	}
	return message, nil
}

// VerifyOTP checks the code, marks the account verified on first login
// and returns an access token with the user.
func (s *Service) VerifyOTP(ctx context.Context, phone, otp string) (string, *storage.User, error) {
	user, err := s.users.GetUserByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil, apperr.NotFound("User not found.")
		}
		return "", nil, apperr.Internal(err)
	}

	if !s.otp.Validate(ctx, user.Phone, otp) {
		return "", nil, apperr.Unauthorized("Invalid OTP")
	}

	if !user.IsVerified {
		user.IsVerified = true
		if err := s.users.SaveUser(ctx, user); err != nil {
			return "", nil, apperr.Internal(err)
		}
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, apperr.Internal(err)
	}

	s.logger.Info("User authenticated", "user_id", user.ID)
	return token, user, nil
}

// VerifyToken validates a bearer token and returns its claims.
func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	return s.tokens.Verify(tokenString)
}

// CurrentUser loads the account behind a set of claims.
func (s *Service) CurrentUser(ctx context.Context, claims *Claims) (*storage.User, error) {
	user, err := s.users.GetUser(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("User not found.")
		}
		return nil, apperr.Internal(err)
	}
	return user, nil
}

// DeleteAccount removes the authenticated user's account.
func (s *Service) DeleteAccount(ctx context.Context, claims *Claims) error {
	if err := s.users.DeleteUser(ctx, claims.UserID()); err != nil {
		return apperr.Internal(err)
	}
	s.logger.Info("User deleted", "user_id", claims.UserID())
	return nil
}

// RequireAdmin rejects claims that do not carry the admin role.
func RequireAdmin(claims *Claims) error {
	if claims == nil || !claims.IsAdmin() {
		return apperr.Forbidden("Admin access required")
	}
	return nil
}
