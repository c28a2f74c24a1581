package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookshelfapp/bookshelf-server/internal/http/response"
)

// EnvelopeVersion is sent as "v" in every API response.
const EnvelopeVersion = response.Version

// APIEnvelope is the response body for successes and simple errors.
type APIEnvelope = response.Envelope //nolint:revive // API prefix is intentional for clarity

// APIErrorEnvelope is the response body for errors that carry details,
// such as per-field validation failures.
type APIErrorEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer wraps every huma response body in the versioned envelope.
// It must run before huma's schema link transformer, which is appended when
// the API is created.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch body := v.(type) {
	case *APIError:
		if body.Details != nil {
			return APIErrorEnvelope{
				Version: EnvelopeVersion,
				Error:   body.Message,
				Code:    body.Code,
				Message: body.Message,
				Details: body.Details,
			}, nil
		}
		return APIEnvelope{
			Version: EnvelopeVersion,
			Error:   body.Message,
			Code:    body.Code,
		}, nil
	case error:
		code, err := strconv.Atoi(status)
		if err != nil {
			code = 500
		}
		return APIEnvelope{
			Version: EnvelopeVersion,
			Error:   body.Error(),
			Code:    string(response.CodeForStatus(code)),
		}, nil
	}

	return APIEnvelope{
		Version: EnvelopeVersion,
		Success: true,
		Data:    v,
	}, nil
}
