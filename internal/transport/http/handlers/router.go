package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/vedran77/geev/internal/mockapi"
	"github.com/vedran77/geev/internal/transport/http/middleware"
)

type RouterConfig struct {
	Auth     *mockapi.AuthAPI
	Items    *mockapi.ItemsAPI
	Messages *mockapi.MessagesAPI
	// WS serves GET /ws when set.
	WS     http.Handler
	Logger *zap.Logger
}

// NewRouter registers every API route and wraps the mux in the request
// logger and CORS.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("http")

	authHandler := NewAuthHandler(cfg.Auth, cfg.Items, cfg.Messages, log)
	itemHandler := NewItemHandler(cfg.Items, cfg.Messages, cfg.Auth, log)
	convHandler := NewConversationHandler(cfg.Messages, log)

	auth := middleware.Auth(cfg.Auth)

	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/google", authHandler.Google)
	mux.HandleFunc("POST /api/v1/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/v1/items", itemHandler.List)
	mux.HandleFunc("GET /api/v1/items/{id}", itemHandler.Get)
	mux.HandleFunc("GET /api/v1/categories", itemHandler.Categories)

	// Protected - Items
	mux.Handle("POST /api/v1/items", auth(http.HandlerFunc(itemHandler.Create)))
	mux.Handle("PATCH /api/v1/items/{id}", auth(http.HandlerFunc(itemHandler.Update)))
	mux.Handle("DELETE /api/v1/items/{id}", auth(http.HandlerFunc(itemHandler.Delete)))
	mux.Handle("POST /api/v1/items/{id}/view", auth(http.HandlerFunc(itemHandler.View)))
	mux.Handle("POST /api/v1/items/{id}/interest", auth(http.HandlerFunc(itemHandler.Interest)))
	mux.Handle("POST /api/v1/items/{id}/messages", auth(http.HandlerFunc(itemHandler.Contact)))
	mux.Handle("GET /api/v1/items/{id}/messages", auth(http.HandlerFunc(itemHandler.Messages)))

	// Protected - Conversations
	mux.Handle("GET /api/v1/conversations", auth(http.HandlerFunc(convHandler.List)))
	mux.Handle("GET /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(convHandler.Messages)))
	mux.Handle("POST /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(convHandler.Send)))

	// Protected - Profile
	mux.Handle("PATCH /api/v1/profile", auth(http.HandlerFunc(authHandler.UpdateProfile)))

	if cfg.WS != nil {
		mux.Handle("GET /ws", cfg.WS)
	}

	return middleware.CORS(middleware.Logger(log)(mux))
}
