package cli

import (
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"taskdash/internal/backend/httpapi"
	"taskdash/internal/config"
	"taskdash/internal/service"
)

// HTTPBackend talks to the task API at the configured URL.
type HTTPBackend struct {
	// HTTPClient overrides the default client (for testing).
	HTTPClient *http.Client
}

func (b HTTPBackend) options(cfg *config.Config, log *slog.Logger) []httpapi.Option {
	opts := []httpapi.Option{
		httpapi.WithTimeout(cfg.API.Timeout),
		httpapi.WithLogger(log),
	}
	if b.HTTPClient != nil {
		opts = append(opts, httpapi.WithHTTPClient(b.HTTPClient))
	}
	return opts
}

// Auth implements Backend.
func (b HTTPBackend) Auth(cfg *config.Config, log *slog.Logger) (service.Authenticator, error) {
	return httpapi.NewAuthClient(cfg.API.URL, b.options(cfg, log)...)
}

// Tasks implements Backend.
func (b HTTPBackend) Tasks(cfg *config.Config, log *slog.Logger, tokens oauth2.TokenSource) (service.TaskGateway, error) {
	return httpapi.NewTaskClient(cfg.API.URL, tokens, b.options(cfg, log)...)
}
