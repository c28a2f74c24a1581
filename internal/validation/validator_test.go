package validation_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookshelfapp/bookshelf-server/internal/errors"
	"github.com/bookshelfapp/bookshelf-server/internal/validation"
)

type changePassword struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	OldPassword string `json:"old_password" validate:"required,min=7,max=255"`
	NewPassword string `json:"new_password" validate:"required,min=7,max=255"`
}

type searchForm struct {
	Query    string `json:"query" validate:"notblank,notrimspace,min=2"`
	Category string `json:"category" validate:"oneof=title author isbn rating year"`
}

type isbnForm struct {
	ISBN13 string `json:"isbn13" validate:"isbn13"`
	Number int64  `json:"number" validate:"omitempty,isbn13"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(changePassword{
		Email:       "reader@example.com",
		OldPassword: "hunter22",
		NewPassword: "hunter23",
	})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name       string
		req        changePassword
		wantErrMsg string
	}{
		{
			name:       "missing email",
			req:        changePassword{OldPassword: "hunter22", NewPassword: "hunter23"},
			wantErrMsg: "email is required",
		},
		{
			name:       "invalid email",
			req:        changePassword{Email: "not-an-email", OldPassword: "hunter22", NewPassword: "hunter23"},
			wantErrMsg: "email must be a valid email address",
		},
		{
			name:       "password too short",
			req:        changePassword{Email: "reader@example.com", OldPassword: "short", NewPassword: "hunter23"},
			wantErrMsg: "old_password must be at least 7 characters",
		},
		{
			name:       "password too long",
			req:        changePassword{Email: "reader@example.com", OldPassword: "hunter22", NewPassword: string(make([]byte, 256))},
			wantErrMsg: "new_password must not exceed 255 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var domainErr *errors.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
			assert.Equal(t, tt.wantErrMsg, domainErr.Message)
		})
	}
}

func TestValidator_FirstFailingFieldInFormOrder(t *testing.T) {
	v := validation.New()

	err := v.Validate(changePassword{Email: "bad", OldPassword: "x"})
	require.Error(t, err)

	var domainErr *errors.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "email must be a valid email address", domainErr.Message)

	details, ok := domainErr.Details.([]validation.FieldError)
	require.True(t, ok)
	require.Len(t, details, 3)
	assert.Equal(t, "email", details[0].Field)
	assert.Equal(t, "old_password", details[1].Field)
	assert.Equal(t, "new_password", details[2].Field)
}

func TestValidator_SearchRules(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name    string
		form    searchForm
		wantErr string
	}{
		{"valid", searchForm{Query: "dune", Category: "title"}, ""},
		{"blank query", searchForm{Query: "   ", Category: "title"}, "query is required"},
		{"leading space", searchForm{Query: " dune", Category: "title"}, "query must not start or end with whitespace"},
		{"too short", searchForm{Query: "d", Category: "author"}, "query must be at least 2 characters"},
		{"bad category", searchForm{Query: "dune", Category: "genre"}, "category must be one of: title author isbn rating year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.form)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestValidator_ISBN13(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(isbnForm{ISBN13: "9780441172719"}))
	assert.NoError(t, v.Validate(isbnForm{ISBN13: "9780441172719", Number: 9780441172719}))
	assert.Error(t, v.Validate(isbnForm{ISBN13: "978044117271"}))
	assert.Error(t, v.Validate(isbnForm{ISBN13: "978-044117271"}))
	assert.Error(t, v.Validate(isbnForm{ISBN13: "9780441172719", Number: 12345}))
}

func TestIsISBN13(t *testing.T) {
	assert.True(t, validation.IsISBN13("0000000000000"))
	assert.False(t, validation.IsISBN13(""))
	assert.False(t, validation.IsISBN13("97804411727190"))
	assert.False(t, validation.IsISBN13("97804411727a9"))
}
