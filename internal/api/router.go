package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/pongmatch-go/internal/api/handler"
	"github.com/mcoot/pongmatch-go/internal/api/middleware"
	"github.com/mcoot/pongmatch-go/internal/gateway"
	"github.com/mcoot/pongmatch-go/internal/matchlog"
	"github.com/mcoot/pongmatch-go/internal/services/auth"
	"github.com/mcoot/pongmatch-go/internal/services/match"
	"github.com/mcoot/pongmatch-go/internal/services/rank"
	"github.com/mcoot/pongmatch-go/internal/sse"
	"github.com/mcoot/pongmatch-go/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	AuthService     *auth.Service
	MatchController match.ControllerInterface
	RankService     *rank.Service
	MatchLogs       matchlog.Gateway
	Storage         storage.Storage
	HubManager      *sse.HubManager
	Gateway         *gateway.Gateway
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.AuthService, cfg.MatchController, cfg.RankService, cfg.MatchLogs)
	matchHandler := handler.NewMatchHandler(cfg.MatchController)
	invitationHandler := handler.NewInvitationHandler(cfg.MatchController)
	roomHandler := handler.NewRoomHandler(cfg.MatchController, cfg.HubManager, cfg.Gateway, cfg.Logger)
	rankingHandler := handler.NewRankingHandler(cfg.RankService, cfg.Storage, cfg.Logger)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Player routes (no auth required for creating players/logging in)
	api.HandleFunc("/players/guest", playerHandler.CreateGuest).Methods(http.MethodPost)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/players/{id:[0-9]+}/matches", playerHandler.Matches).Methods(http.MethodGet)
	api.HandleFunc("/rankings", rankingHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/rooms", roomHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{room_id}", roomHandler.Get).Methods(http.MethodGet)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Everything else requires a session
	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware)

	protected.HandleFunc("/players/me", playerHandler.GetMe).Methods(http.MethodGet)
	protected.HandleFunc("/players/logout", playerHandler.Logout).Methods(http.MethodPost)

	protected.HandleFunc("/queue", matchHandler.Enqueue).Methods(http.MethodPost)
	protected.HandleFunc("/queue", matchHandler.Dequeue).Methods(http.MethodDelete)

	protected.HandleFunc("/match", matchHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/match/paddle", matchHandler.Paddle).Methods(http.MethodPost)
	protected.HandleFunc("/match/ready", matchHandler.Ready).Methods(http.MethodPost)
	protected.HandleFunc("/match/rule", matchHandler.Rule).Methods(http.MethodPatch)
	protected.HandleFunc("/match/abandon", matchHandler.Abandon).Methods(http.MethodPost)

	protected.HandleFunc("/invitations", invitationHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/invitations", invitationHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/invitations/{id}/accept", invitationHandler.Accept).Methods(http.MethodPost)

	protected.HandleFunc("/rooms/{room_id}/events", roomHandler.Events).Methods(http.MethodGet)
	protected.HandleFunc("/ws", roomHandler.Socket).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
