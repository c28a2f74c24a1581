package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookshelfapp/bookshelf-server/internal/service"
)

func (s *Server) registerAccountRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "changePassword",
		Method:      http.MethodPost,
		Path:        "/api/v1/account/change-password",
		Summary:     "Change password",
		Description: "Validates the change-password form. No account data is stored.",
		Tags:        []string{"Account"},
	}, s.handleChangePassword)
}

// ChangePasswordRequest is the change-password form.
type ChangePasswordRequest struct {
	Email       string `json:"email" required:"false" doc:"Account email"`
	OldPassword string `json:"old_password" required:"false" doc:"Current password"`
	NewPassword string `json:"new_password" required:"false" doc:"New password, at least 7 characters"`
}

// ChangePasswordInput wraps the change-password request for Huma.
type ChangePasswordInput struct {
	Body ChangePasswordRequest
}

func (s *Server) handleChangePassword(ctx context.Context, input *ChangePasswordInput) (*MessageOutput, error) {
	msg, err := s.services.Account.ChangePassword(ctx, service.ChangePasswordForm{
		Email:       input.Body.Email,
		OldPassword: input.Body.OldPassword,
		NewPassword: input.Body.NewPassword,
	})
	if err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: msg}}, nil
}
