package httptransport

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"board-arena/internal/game"
	"board-arena/internal/game/viewmodel"
	"board-arena/internal/session"
	"board-arena/internal/spectatorgateway"
	"board-arena/internal/store"
	"board-arena/internal/tournament"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Users interface {
	CreateUser(ctx context.Context, name, apiKey string, initialBalance int64) (*store.User, error)
	GetUser(ctx context.Context, id string) (*store.User, error)
	ListLedgerEntries(ctx context.Context, userID string, limit int) ([]store.LedgerEntry, error)
	ListGameRecords(ctx context.Context, userID string, limit int) ([]store.GameRecord, error)
}

type Wallet interface {
	TopUp(ctx context.Context, userID string, amount int64) (int64, error)
}

type Rooms interface {
	ListRooms() []session.RoomSummary
	PublicState(roomID string) (viewmodel.PublicView, error)
	CreateAdminRoom(ctx context.Context, kind game.Kind, bet int64, players []game.Player) (session.RoomSummary, error)
}

type Tournaments interface {
	List(ctx context.Context, statuses ...tournament.Status) ([]tournament.Tournament, error)
	Get(ctx context.Context, id string) (*tournament.Tournament, error)
	Create(ctx context.Context, p tournament.CreateParams) (*tournament.Tournament, error)
	Cancel(ctx context.Context, tournamentID string) error
}

type Deps struct {
	DB          Pinger
	Users       Users
	Wallet      Wallet
	Rooms       Rooms
	Tournaments Tournaments
	Spectators  *spectatorgateway.Hub
	// WS upgrades player connections; MCP serves tool-calling agents.
	WS  http.Handler
	MCP http.Handler

	AdminAPIKey    string
	InitialBalance int64
}

func NewRouter(d Deps) *chi.Mux {
	publicHandlers := NewPublicHandlers(d.Rooms, d.Tournaments)
	adminHandlers := NewAdminHandlers(d)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())
	if d.WS != nil {
		r.Method(http.MethodGet, "/ws", d.WS)
	}
	if d.MCP != nil {
		r.With(APILogMiddleware()).MethodFunc(http.MethodOptions, "/mcp", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Allow", "POST, GET, DELETE, OPTIONS")
			w.WriteHeader(http.StatusNoContent)
		})
		r.With(APILogMiddleware()).Method(http.MethodPost, "/mcp", d.MCP)
		r.With(APILogMiddleware()).Method(http.MethodGet, "/mcp", d.MCP)
		r.With(APILogMiddleware()).Method(http.MethodDelete, "/mcp", d.MCP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Get("/rooms", publicHandlers.Rooms())
		r.Get("/rooms/{id}/state", spectatorgateway.StateHandler(d.Rooms))
		if d.Spectators != nil {
			r.Get("/rooms/{id}/events", spectatorgateway.EventsHandler(d.Spectators, d.Rooms))
		}
		r.Get("/tournaments", publicHandlers.Tournaments())
		r.Get("/tournaments/{id}", publicHandlers.Tournament())

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuthMiddleware(d.AdminAPIKey))
			r.Use(BodyCaptureMiddleware(4096))
			r.Post("/users", adminHandlers.CreateUser())
			r.Get("/users/{id}/ledger", adminHandlers.Ledger())
			r.Get("/users/{id}/games", adminHandlers.Games())
			r.Post("/topup", adminHandlers.Topup())
			r.Post("/rooms", adminHandlers.Rooms())
			r.Post("/tournaments", adminHandlers.CreateTournament())
			r.Post("/tournaments/{id}/cancel", adminHandlers.CancelTournament())
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 32)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
