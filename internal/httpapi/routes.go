package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/cricket-live/internal/hub"
	"github.com/DoyleJ11/cricket-live/internal/logging"
	"github.com/DoyleJ11/cricket-live/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Options struct {
	WS      ws.Options
	Metrics http.Handler // served on /metrics when set
}

func SetupRoutes(h *hub.Hub, opts Options) http.Handler {
	log := logging.OrNop(opts.WS.Logger)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Post("/matches", CreateMatch(h, log))
	r.Get("/matches/matchstate/{matchID}", GetMatchState(h))
	r.Post("/matches/{matchID}/players/update", UpdatePlayers(h))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, opts.WS))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	return r
}
