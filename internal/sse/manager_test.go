package sse

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookshelfapp/bookshelf-server/internal/domain"
)

func newTestManager(t *testing.T) (*Manager, context.CancelFunc) {
	t.Helper()

	m := NewManager(slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)
	t.Cleanup(cancel)
	return m, cancel
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case evt := <-c.EventChan:
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case evt := <-c.EventChan:
		t.Fatalf("unexpected event %s", evt.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManager_ConnectDisconnect(t *testing.T) {
	m, _ := newTestManager(t)

	client, err := m.Connect("")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(client.ID, "sse-"))
	assert.Equal(t, 1, m.ClientCount())

	m.Disconnect(client.ID)
	assert.Equal(t, 0, m.ClientCount())

	// Second disconnect is a no-op.
	assert.NotPanics(t, func() { m.Disconnect(client.ID) })
}

func TestManager_BroadcastFiltersByBook(t *testing.T) {
	m, _ := newTestManager(t)

	all, err := m.Connect("")
	require.NoError(t, err)
	dune, err := m.Connect("9780441172719")
	require.NoError(t, err)

	m.Emit(NewRatingEvent(EventRatingSubmitted, RatingEventData{
		BookID: 1,
		ISBN:   "9780441172719",
		Counts: [5]int{1, 1, 2, 10, 30},
	}))

	evt := receive(t, all)
	assert.Equal(t, EventRatingSubmitted, evt.Type)
	evt = receive(t, dune)
	assert.Equal(t, EventRatingSubmitted, evt.Type)

	m.Emit(NewBookDeletedEvent("9780141439518", time.Now()))
	evt = receive(t, all)
	assert.Equal(t, EventBookDeleted, evt.Type)
	assertNoEvent(t, dune)

	// Catalog-wide events skip book watchers.
	m.Emit(NewIndexRefreshedEvent(10, time.Second))
	evt = receive(t, all)
	assert.Equal(t, EventIndexRefreshed, evt.Type)
	assertNoEvent(t, dune)
}

func TestManager_ShutdownDropsLateEvents(t *testing.T) {
	m, _ := newTestManager(t)

	client, err := m.Connect("")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	assert.NotPanics(t, func() { m.Emit(NewHeartbeatEvent()) })
	assert.Equal(t, 0, m.ClientCount())

	select {
	case <-client.Done:
	case <-time.After(time.Second):
		t.Fatal("client was not closed on shutdown")
	}

	// Shutdown is idempotent.
	require.NoError(t, m.Shutdown(ctx))
}

func TestHandler_StreamsEvents(t *testing.T) {
	m, _ := newTestManager(t)
	h := NewHandler(m, slog.New(slog.DiscardHandler))

	server := httptest.NewServer(h)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"?isbn=9780441172719", nil)
	require.NoError(t, err)
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	book := &domain.Book{ID: 1, ISBN13: 9780441172719, Title: "Dune"}
	require.Eventually(t, func() bool { return m.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	m.Emit(NewBookCreatedEvent(book))

	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 1024)
	for !strings.Contains(string(buf), "event: book.created") {
		n, err := resp.Body.Read(chunk)
		require.NoError(t, err)
		buf = append(buf, chunk[:n]...)
	}
	assert.Contains(t, string(buf), "event: connected")
	assert.Contains(t, string(buf), `"title":"Dune"`)
}

func TestHandler_RejectsNonGet(t *testing.T) {
	m, _ := newTestManager(t)
	h := NewHandler(m, slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/events", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_RejectsMalformedISBNFilter(t *testing.T) {
	m, _ := newTestManager(t)
	h := NewHandler(m, slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events?isbn=97804", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"VALIDATION"`)
	assert.Zero(t, m.ClientCount())
}
