// Package restfront exposes the provider registry over an OpenAI-compatible
// HTTP API: POST /v1/chat/completions (single provider or multiplex, JSON
// or SSE), GET /v1/models, and GET /health.
package restfront

import (
	"context"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/howard-nolan/cliwire/internal/capability"
	"github.com/howard-nolan/cliwire/internal/discovery"
	"github.com/howard-nolan/cliwire/internal/llm"
	"github.com/howard-nolan/cliwire/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Runners is the subset of *registry.Registry the REST front depends on.
// Defined here (rather than imported from registry) so handlers can be
// tested against a fake without spinning up real CLI binaries.
type Runners interface {
	Get(kind llm.Kind) (llm.Provider, error)
}

// Server holds the HTTP router and the dependencies every handler needs.
type Server struct {
	router          chi.Router
	runners         Runners
	defaultProvider llm.Kind
	logger          *zap.Logger
	metrics         *metrics.Collector
}

// New creates a Server, wires up routes and middleware, and returns it
// ready to use as an http.Handler. collector may be nil, in which case no
// metrics are recorded but /metrics still serves the process's default
// Go runtime metrics.
func New(runners Runners, defaultProvider llm.Kind, logger *zap.Logger, collector *metrics.Collector) *Server {
	s := &Server{runners: runners, defaultProvider: defaultProvider, logger: logger, metrics: collector}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/v1/models", s.handleModels)
	r.Post("/v1/chat/completions", s.handleChatCompletions)
	r.Handle("/metrics", promhttp.Handler())

	s.router = r
}

// ServeHTTP makes Server satisfy http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleModels asks the registry for every known provider kind (which
// constructs the adapter on first use) and lists each one's available
// models, or its default model when it reports none. Kinds whose adapter
// cannot be obtained, e.g. because the binary is missing, are left out.
// Listing is advisory, not a readiness check.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	var data []modelData
	for _, kind := range llm.AllKinds {
		provider, err := s.runners.Get(kind)
		if err != nil {
			s.logger.Debug("skipping unavailable provider in model listing",
				zap.String("provider", kind.String()), zap.Error(err))
			continue
		}
		caps := s.probeCapabilities(r.Context(), kind)
		for _, model := range modelsFor(provider) {
			data = append(data, modelData{
				ID:           kind.String() + ":" + model,
				Object:       "model",
				OwnedBy:      kind.String(),
				Capabilities: caps,
			})
		}
	}
	writeJSON(w, http.StatusOK, modelsResponse{Object: "list", Data: data})
}

// probeCapabilities runs the version-string capability probe for kind's
// binary and reports what it finds. A binary that can no longer be
// resolved (removed after the registry constructed its provider) yields a
// nil field rather than failing the whole listing.
func (s *Server) probeCapabilities(ctx context.Context, kind llm.Kind) *capabilitiesField {
	binaryPath, err := discovery.Resolve(kind.BinaryName(), os.Getenv(kind.EnvOverrideKey()))
	if err != nil {
		s.logger.Debug("skipping capability probe, binary not resolvable",
			zap.String("provider", kind.String()), zap.Error(err))
		return nil
	}
	caps := capability.Run(ctx, kind, binaryPath)
	return &capabilitiesField{
		VersionString:       caps.VersionString,
		MeetsMinimumVersion: caps.MeetsMinimumVersion,
		JSONOutput:          caps.JSONOutput,
		Streaming:           caps.Streaming,
		SystemPrompt:        caps.SystemPrompt,
		SessionResume:       caps.SessionResume,
	}
}

func modelsFor(p llm.Provider) []string {
	if models := p.AvailableModels(); len(models) > 0 {
		return models
	}
	return []string{p.DefaultModel()}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonEncode(w, body)
}
