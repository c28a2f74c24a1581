package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// catalogPingTimeout bounds the health probe against the Book API.
const catalogPingTimeout = 3 * time.Second

// Component health states.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"catalog": s.checkCatalog(ctx),
		"search":  s.checkSearchIndex(),
		"sse":     s.checkSSEManager(),
	}

	overall := statusHealthy
	for _, c := range components {
		switch {
		case c.Status == statusUnhealthy:
			overall = statusUnhealthy
		case c.Status == statusDegraded && overall == statusHealthy:
			overall = statusDegraded
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

// checkCatalog pings the remote Book API. An unreachable catalog leaves the
// dashboard read-only from the index, so it degrades rather than fails.
func (s *Server) checkCatalog(ctx context.Context) ComponentHealth {
	if s.services.Catalog == nil {
		return ComponentHealth{Status: statusDegraded, Message: "catalog client not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, catalogPingTimeout)
	defer cancel()

	start := time.Now()
	err := s.services.Catalog.Ping(ctx)
	latency := time.Since(start).Round(time.Millisecond).String()
	if err != nil {
		s.logger.Warn("catalog health check failed", "error", err)
		return ComponentHealth{Status: statusDegraded, Latency: latency, Message: "Book API unreachable"}
	}
	return ComponentHealth{Status: statusHealthy, Latency: latency}
}

// checkSearchIndex reports the indexed document count. An index that has
// never been refreshed still answers searches, just with nothing in it.
func (s *Server) checkSearchIndex() ComponentHealth {
	if s.services.Index == nil {
		return ComponentHealth{Status: statusDegraded, Message: "search index not configured"}
	}

	count, err := s.services.Index.DocumentCount()
	if err != nil {
		return ComponentHealth{Status: statusUnhealthy, Message: "search index unavailable"}
	}
	if s.services.Index.LastRefreshed().IsZero() {
		return ComponentHealth{Status: statusDegraded, Message: fmt.Sprintf("%d books indexed, catalog not yet indexed", count)}
	}
	return ComponentHealth{Status: statusHealthy, Message: fmt.Sprintf("%d books indexed", count)}
}

func (s *Server) checkSSEManager() ComponentHealth {
	if s.services.Events == nil {
		return ComponentHealth{Status: statusDegraded, Message: "event stream not configured"}
	}
	return ComponentHealth{Status: statusHealthy, Message: fmt.Sprintf("%d clients connected", s.services.Events.ClientCount())}
}
