package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/moogar0880/problems"

	infraconfig "github.com/primevalsoup/workspace-gateway/internal/infra/config"
	"github.com/primevalsoup/workspace-gateway/internal/observability"
	"github.com/primevalsoup/workspace-gateway/internal/transport/http/middleware"
)

// NewRouter builds the public router: the front-door endpoint plus the
// middleware stack (request ID, recovery, structured logging, per-IP rate
// limit).
//
// Unknown routes and disallowed methods never enter the envelope pipeline,
// so they answer with RFC 7807 problem documents instead.
func NewRouter(cfg *infraconfig.Config, logger *slog.Logger, metrics *observability.GatewayMetrics, front *FrontDoor) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer(logger, metrics))
	r.Use(middleware.RequestLogger(logger))
	if cfg.RateLimitRPS > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitRPS, time.Second))
	}

	r.Get("/", front.Health)
	r.Post("/", front.Handle)

	r.NotFound(problemHandler(http.StatusNotFound, "the requested route does not exist"))
	r.MethodNotAllowed(problemHandler(http.StatusMethodNotAllowed, "only GET and POST are served"))

	return r
}

// problemHandler answers a framing error with an RFC 7807 document.
func problemHandler(status int, detail string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := problems.NewStatusProblem(status)
		p.Detail = detail
		p.Instance = r.URL.Path
		w.Header().Set("Content-Type", problems.ProblemMediaType)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(p)
	}
}
