// Package server exposes the correlation report over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"queueview/internal/backend"
	"queueview/internal/config"
	"queueview/internal/domain"
	"queueview/internal/engine"
	"queueview/internal/history"
	"queueview/internal/tickets"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	History  *history.Store
	Defaults config.ReportConfig
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"bad_request"`
	Message string         `json:"message" example:"queue is required"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the report API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Queueview API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerReport(group, cfg)
	registerPresence(group, cfg)
	registerTickets(group, cfg)
	if cfg.History != nil {
		registerSnapshots(group, cfg)
	}

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadGateway:
		return "backend_auth_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

// handleError maps source failures onto the envelope. Backend auth failures
// surface as 502 so callers can tell them apart from this API's own 401.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, history.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	if backend.IsAuth(err) {
		return newAPIError(http.StatusBadGateway, "backend_auth_failed", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
}

type reportParams struct {
	Queue    string   `query:"queue" doc:"Routing queue to scope the presence fetch; defaults to the configured queue"`
	Statuses []string `query:"status" doc:"Ticket statuses to include; defaults to the configured list"`
}

func (p reportParams) withDefaults(d config.ReportConfig) (string, []string) {
	queue := p.Queue
	if queue == "" {
		queue = d.Queue
	}
	statuses := p.Statuses
	if len(statuses) == 0 {
		statuses = d.Statuses
	}
	return queue, statuses
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerReport(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "report",
		Method:      http.MethodGet,
		Path:        "/report",
		Summary:     "Correlated ticket and presence report",
	}, func(ctx context.Context, input *reportParams) (*struct {
		Body struct {
			Queue string                 `json:"queue"`
			Rows  []domain.CorrelatedRow `json:"rows"`
		} `json:"body"`
	}, error) {
		queue, statuses := input.withDefaults(cfg.Defaults)
		if queue == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "queue is required", nil)
		}
		rows, err := cfg.Engine.BuildReport(ctx, queue, statuses)
		if err != nil {
			return nil, handleError(err)
		}
		resp := &struct {
			Body struct {
				Queue string                 `json:"queue"`
				Rows  []domain.CorrelatedRow `json:"rows"`
			} `json:"body"`
		}{}
		resp.Body.Queue = queue
		resp.Body.Rows = rows
		return resp, nil
	})
}

func registerPresence(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "presence",
		Method:      http.MethodGet,
		Path:        "/presence",
		Summary:     "Live presence for a queue's agents",
	}, func(ctx context.Context, input *reportParams) (*struct {
		Body struct {
			Queue  string                 `json:"queue"`
			Agents []domain.AgentPresence `json:"agents"`
		} `json:"body"`
	}, error) {
		queue, _ := input.withDefaults(cfg.Defaults)
		if queue == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "queue is required", nil)
		}
		agents, err := cfg.Engine.Presence.Agents(ctx, queue)
		if err != nil {
			return nil, handleError(err)
		}
		resp := &struct {
			Body struct {
				Queue  string                 `json:"queue"`
				Agents []domain.AgentPresence `json:"agents"`
			} `json:"body"`
		}{}
		resp.Body.Queue = queue
		resp.Body.Agents = agents
		return resp, nil
	})
}

func registerTickets(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "tickets",
		Method:      http.MethodGet,
		Path:        "/tickets",
		Summary:     "Filtered ticket list",
	}, func(ctx context.Context, input *reportParams) (*struct {
		Body struct {
			Tickets []domain.Ticket `json:"tickets"`
		} `json:"body"`
	}, error) {
		_, statuses := input.withDefaults(cfg.Defaults)
		list, err := cfg.Engine.Tickets.Fetch(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		resp := &struct {
			Body struct {
				Tickets []domain.Ticket `json:"tickets"`
			} `json:"body"`
		}{}
		resp.Body.Tickets = tickets.FilterByStatus(list, statuses)
		return resp, nil
	})
}

func registerSnapshots(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "list-snapshots",
		Method:      http.MethodGet,
		Path:        "/snapshots",
		Summary:     "List saved report snapshots",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"20"`
	}) (*struct {
		Body struct {
			Items []domain.ReportSnapshot `json:"items"`
		} `json:"body"`
	}, error) {
		items, err := cfg.History.List(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		resp := &struct {
			Body struct {
				Items []domain.ReportSnapshot `json:"items"`
			} `json:"body"`
		}{}
		resp.Body.Items = items
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-snapshot",
		Method:      http.MethodGet,
		Path:        "/snapshots/{id}",
		Summary:     "Fetch one saved snapshot with its rows",
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.ReportSnapshot `json:"body"`
	}, error) {
		snap, err := cfg.History.Get(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ReportSnapshot `json:"body"`
		}{Body: snap}, nil
	})
}
