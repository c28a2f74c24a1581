package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookshelfapp/bookshelf-server/internal/service"
)

func (s *Server) registerRatingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "openRatingSession",
		Method:        http.MethodPost,
		Path:          "/api/v1/rating-sessions",
		Summary:       "Open rating session",
		Description:   "Loads a book and starts editing its star rating counts",
		Tags:          []string{"Ratings"},
		DefaultStatus: http.StatusCreated,
	}, s.handleOpenRatingSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRatingSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/rating-sessions/{id}",
		Summary:     "Get rating session",
		Description: "Returns the session's current counts and status",
		Tags:        []string{"Ratings"},
	}, s.handleGetRatingSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "incrementRating",
		Method:      http.MethodPost,
		Path:        "/api/v1/rating-sessions/{id}/stars/{star}/increment",
		Summary:     "Increment star count",
		Description: "Adds one rating to a star bucket",
		Tags:        []string{"Ratings"},
	}, s.handleIncrementRating)

	huma.Register(s.api, huma.Operation{
		OperationID: "decrementRating",
		Method:      http.MethodPost,
		Path:        "/api/v1/rating-sessions/{id}/stars/{star}/decrement",
		Summary:     "Decrement star count",
		Description: "Removes one rating from a star bucket; counts never go below zero",
		Tags:        []string{"Ratings"},
	}, s.handleDecrementRating)

	huma.Register(s.api, huma.Operation{
		OperationID: "setRatingCount",
		Method:      http.MethodPut,
		Path:        "/api/v1/rating-sessions/{id}/stars/{star}",
		Summary:     "Set star count",
		Description: "Sets a star bucket from raw text input. Input that is not a non-negative whole number is ignored.",
		Tags:        []string{"Ratings"},
	}, s.handleSetRatingCount)

	huma.Register(s.api, huma.Operation{
		OperationID: "submitRatings",
		Method:      http.MethodPost,
		Path:        "/api/v1/rating-sessions/{id}/submit",
		Summary:     "Submit ratings",
		Description: "Writes the edited counts to the Book API. A failed write rolls the counts back and reports a failure notice.",
		Tags:        []string{"Ratings"},
	}, s.handleSubmitRatings)

	huma.Register(s.api, huma.Operation{
		OperationID: "undoRatings",
		Method:      http.MethodPost,
		Path:        "/api/v1/rating-sessions/{id}/undo",
		Summary:     "Undo last submit",
		Description: "Restores the counts from before the last successful submit",
		Tags:        []string{"Ratings"},
	}, s.handleUndoRatings)

	huma.Register(s.api, huma.Operation{
		OperationID: "discardRatingSession",
		Method:      http.MethodDelete,
		Path:        "/api/v1/rating-sessions/{id}",
		Summary:     "Close rating session",
		Description: "Closes the session. Unsaved changes are only discarded with force=true.",
		Tags:        []string{"Ratings"},
	}, s.handleDiscardRatingSession)
}

// === DTOs ===

// NoticeResponse is the message shown after a write completes.
type NoticeResponse struct {
	Kind    string `json:"kind" doc:"success, failure, undone, or undo_failed"`
	Message string `json:"message" doc:"User-facing message"`
	Undo    bool   `json:"undo" doc:"Whether the notice offers an undo action"`
}

// RatingSessionResponse contains a rating session's view.
type RatingSessionResponse struct {
	ID             string              `json:"id" doc:"Session ID"`
	ISBN           string              `json:"isbn" doc:"Book ISBN"`
	Title          string              `json:"title" doc:"Book title"`
	BookID         int64               `json:"book_id" doc:"Catalog book ID"`
	State          string              `json:"state" doc:"clean, dirty, submitting, or reverting"`
	Counts         map[string]int      `json:"counts" doc:"Edited ratings per star, keyed \"1\" to \"5\""`
	Total          int                 `json:"total" doc:"Total ratings"`
	Average        float64             `json:"average" doc:"Weighted average"`
	AverageDisplay string              `json:"average_display" doc:"Average rounded to one decimal"`
	Breakdown      []StarShareResponse `json:"breakdown" doc:"Per-star shares ordered 5 to 1"`
	HasChanges     bool                `json:"has_changes" doc:"Counts differ from the last confirmed counts"`
	UndoAvailable  bool                `json:"undo_available" doc:"The last successful submit can be undone"`
	Notice         *NoticeResponse     `json:"notice,omitempty" doc:"Outcome of the last write"`
}

// RatingSessionOutput wraps a session response for Huma.
type RatingSessionOutput struct {
	Body RatingSessionResponse
}

// OpenRatingSessionRequest is the request body for opening a session.
type OpenRatingSessionRequest struct {
	ISBN string `json:"isbn" doc:"13 digit ISBN of the book to edit"`
}

// OpenRatingSessionInput wraps the open session request for Huma.
type OpenRatingSessionInput struct {
	Body OpenRatingSessionRequest
}

// RatingSessionInput identifies a session.
type RatingSessionInput struct {
	ID string `path:"id" doc:"Session ID"`
}

// StarInput identifies a star bucket within a session.
type StarInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Star string `path:"star" doc:"Star value, 1 to 5"`
}

// SetRatingCountRequest carries the raw text of a count input.
type SetRatingCountRequest struct {
	Value string `json:"value" doc:"Raw count text, e.g. \"12\""`
}

// SetRatingCountInput wraps the set count request for Huma.
type SetRatingCountInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Star string `path:"star" doc:"Star value, 1 to 5"`
	Body SetRatingCountRequest
}

// DiscardRatingSessionInput contains parameters for closing a session.
type DiscardRatingSessionInput struct {
	ID    string `path:"id" doc:"Session ID"`
	Force bool   `query:"force" doc:"Discard unsaved changes"`
}

// === Handlers ===

func (s *Server) handleOpenRatingSession(ctx context.Context, input *OpenRatingSessionInput) (*RatingSessionOutput, error) {
	return sessionOutput(s.services.Rating.Open(ctx, input.Body.ISBN))
}

func (s *Server) handleGetRatingSession(_ context.Context, input *RatingSessionInput) (*RatingSessionOutput, error) {
	return sessionOutput(s.services.Rating.Get(input.ID))
}

func (s *Server) handleIncrementRating(_ context.Context, input *StarInput) (*RatingSessionOutput, error) {
	return sessionOutput(s.services.Rating.Increment(input.ID, input.Star))
}

func (s *Server) handleDecrementRating(_ context.Context, input *StarInput) (*RatingSessionOutput, error) {
	return sessionOutput(s.services.Rating.Decrement(input.ID, input.Star))
}

func (s *Server) handleSetRatingCount(_ context.Context, input *SetRatingCountInput) (*RatingSessionOutput, error) {
	return sessionOutput(s.services.Rating.SetCount(input.ID, input.Star, input.Body.Value))
}

func (s *Server) handleSubmitRatings(ctx context.Context, input *RatingSessionInput) (*RatingSessionOutput, error) {
	return sessionOutput(s.services.Rating.Submit(ctx, input.ID))
}

func (s *Server) handleUndoRatings(ctx context.Context, input *RatingSessionInput) (*RatingSessionOutput, error) {
	return sessionOutput(s.services.Rating.Undo(ctx, input.ID))
}

func (s *Server) handleDiscardRatingSession(_ context.Context, input *DiscardRatingSessionInput) (*MessageOutput, error) {
	if err := s.services.Rating.Discard(input.ID, input.Force); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Rating session closed"}}, nil
}

// === Mapping ===

func sessionOutput(v *service.SessionView, err error) (*RatingSessionOutput, error) {
	if err != nil {
		return nil, err
	}
	return &RatingSessionOutput{Body: toRatingSessionResponse(v)}, nil
}

func toRatingSessionResponse(v *service.SessionView) RatingSessionResponse {
	resp := RatingSessionResponse{
		ID:             v.ID,
		ISBN:           v.ISBN,
		Title:          v.Title,
		BookID:         v.BookID,
		State:          v.State.String(),
		Counts:         countsByStar(v.Counts),
		Total:          v.Total,
		Average:        v.Average,
		AverageDisplay: v.AverageDisplay,
		Breakdown:      toBreakdown(v.Breakdown()),
		HasChanges:     v.HasChanges,
		UndoAvailable:  v.UndoAvailable,
	}
	if v.Notice != nil {
		resp.Notice = &NoticeResponse{
			Kind:    string(v.Notice.Kind),
			Message: v.Notice.Message,
			Undo:    v.Notice.Undo,
		}
	}
	return resp
}
