package sse

import (
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bookshelfapp/bookshelf-server/internal/http/response"
	"github.com/bookshelfapp/bookshelf-server/internal/validation"
)

// writeDeadline is pushed forward after every event. The manager's heartbeat
// keeps an idle stream inside it.
const writeDeadline = 60 * time.Second

// Handler streams events at GET /api/v1/events.
// An optional ?isbn= query parameter limits the stream to one book.
type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		logger:  logger,
	}
}

// ServeHTTP handles the SSE connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.MethodNotAllowed(w, "Events are streamed with GET", h.logger)
		return
	}

	isbn := r.URL.Query().Get("isbn")
	if isbn != "" && !validation.IsISBN13(isbn) {
		response.Error(w, http.StatusBadRequest, "isbn filter must be exactly 13 digits", h.logger)
		return
	}

	ctx := r.Context()
	if ctx.Err() != nil {
		return
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no") // nginx

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		h.logger.Error("streaming unsupported", "error", err)
		response.InternalError(w, "Streaming not supported", h.logger)
		return
	}

	client, err := h.manager.Connect(isbn)
	if err != nil {
		h.logger.Error("failed to register SSE client", "error", err)
		response.InternalError(w, "Failed to establish connection", h.logger)
		return
	}
	defer h.manager.Disconnect(client.ID)

	log := h.logger.With("client_id", client.ID, "isbn", isbn)

	hello := map[string]string{"client_id": client.ID, "isbn": isbn}
	if err := h.write(rc, w, "connected", hello); err != nil {
		log.Warn("failed to send connected event", "error", err)
		return
	}

	for {
		select {
		case event, ok := <-client.EventChan:
			if !ok {
				return
			}
			if err := h.write(rc, w, string(event.Type), event); err != nil {
				log.Info("client went away mid-send")
				return
			}
		case <-client.Done:
			log.Info("stream closed by server")
			return
		case <-ctx.Done():
			log.Debug("client disconnected")
			return
		}
	}
}

// write sends one event frame and flushes it.
func (h *Handler) write(rc *http.ResponseController, w http.ResponseWriter, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}
	if err := rc.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		// Not every ResponseWriter supports deadlines.
		h.logger.Debug("failed to extend write deadline", "error", err)
	}
	return nil
}
