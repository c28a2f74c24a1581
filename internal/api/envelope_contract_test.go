package api

import (
	"encoding/json/v2"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The dashboard client parses exactly these shapes. Adding a key is a
// contract change and must be mirrored there.
var envelopeContracts = []struct {
	name     string
	status   string
	body     any
	required []string
	optional []string
}{
	{
		name:     "success",
		status:   "200",
		body:     map[string]string{"isbn13": "9780441172719", "title": "Dune"},
		required: []string{"v", "success", "data"},
	},
	{
		name:     "success without data",
		status:   "200",
		body:     nil,
		required: []string{"v", "success"},
		optional: []string{"data"},
	},
	{
		name:     "simple error",
		status:   "404",
		body:     &APIError{Code: "NOT_FOUND", Message: "Book not found"},
		required: []string{"v", "success", "error", "code"},
	},
	{
		name:     "plain error",
		status:   "500",
		body:     errors.New("unexpected error occurred"),
		required: []string{"v", "success", "error", "code"},
	},
	{
		name:   "detailed error",
		status: "400",
		body: &APIError{
			Code:    "VALIDATION",
			Message: "isbn13 must be exactly 13 digits",
			Details: []map[string]string{{"field": "isbn13", "message": "must be exactly 13 digits"}},
		},
		required: []string{"v", "success", "error", "code", "message", "details"},
	},
}

func TestEnvelopeContract_Keys(t *testing.T) {
	for _, tc := range envelopeContracts {
		t.Run(tc.name, func(t *testing.T) {
			result, err := EnvelopeTransformer(nil, tc.status, tc.body)
			require.NoError(t, err)

			raw, err := json.Marshal(result)
			require.NoError(t, err)

			var output map[string]any
			require.NoError(t, json.Unmarshal(raw, &output))

			for _, key := range tc.required {
				assert.Contains(t, output, key, "missing required key %q", key)
			}
			for key := range output {
				allowed := slices.Contains(tc.required, key) || slices.Contains(tc.optional, key)
				assert.True(t, allowed, "unexpected key %q in %s", key, raw)
			}
			assert.InDelta(t, float64(EnvelopeVersion), output["v"], 0)
		})
	}
}

func TestEnvelopeContract_ErrorIsString(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "404", &APIError{Code: "NOT_FOUND", Message: "Book not found"})
	require.NoError(t, err)

	raw, err := json.Marshal(result)
	require.NoError(t, err)

	var output map[string]any
	require.NoError(t, json.Unmarshal(raw, &output))

	assert.Equal(t, false, output["success"])
	assert.IsType(t, "", output["error"])
	assert.Equal(t, "Book not found", output["error"])
}

func TestEnvelopeContract_DetailsArePreserved(t *testing.T) {
	details := []map[string]string{
		{"field": "id", "message": "is required"},
		{"field": "title", "message": "is required"},
	}
	result, err := EnvelopeTransformer(nil, "400", &APIError{Code: "VALIDATION", Message: "id is required", Details: details})
	require.NoError(t, err)

	raw, err := json.Marshal(result)
	require.NoError(t, err)

	var output struct {
		Details []map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(raw, &output))
	assert.Equal(t, details, output.Details)
}
