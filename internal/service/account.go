package service

import (
	"context"
	"log/slog"

	"github.com/bookshelfapp/bookshelf-server/internal/validation"
)

// MsgResetMailSent confirms an accepted change-password form.
const MsgResetMailSent = "Check mail for reset password link"

// ChangePasswordForm is the change-password form.
type ChangePasswordForm struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	OldPassword string `json:"old_password" validate:"required,min=7,max=255"`
	NewPassword string `json:"new_password" validate:"required,min=7,max=255"`
}

// AccountService handles the account forms. There is no account store
// behind it; accepted forms are acknowledged and nothing is persisted.
type AccountService struct {
	validator *validation.Validator
	logger    *slog.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(logger *slog.Logger) *AccountService {
	return &AccountService{
		validator: validation.New(),
		logger:    logger,
	}
}

// ChangePassword validates the form and returns the confirmation message.
func (s *AccountService) ChangePassword(_ context.Context, form ChangePasswordForm) (string, error) {
	if err := s.validator.Validate(form); err != nil {
		return "", err
	}
	s.logger.Info("change password requested")
	return MsgResetMailSent, nil
}
