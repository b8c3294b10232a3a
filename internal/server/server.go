package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/basket/internal/cache"
	"github.com/dukerupert/basket/internal/handler"
	"github.com/dukerupert/basket/internal/middleware"
	"github.com/dukerupert/basket/internal/store"
	ws "github.com/dukerupert/basket/internal/websocket"
)

// Login and registration attempts allowed per client IP per minute.
const authRateLimit = 10

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	authH       *handler.AuthHandler
	catalogH    *handler.CatalogHandler
	listH       *handler.ShoppingListHandler
	receiptH    *handler.ReceiptHandler
	tokenStore  *store.TokenStore
	rateLimiter *middleware.RateLimiter
	clientIP    func(*http.Request) string
	logger      *slog.Logger
}

type Option func(*Server)

// WithTrustProxy keys rate limits on X-Real-IP / X-Forwarded-For instead of
// the connection address. Enable it only behind a proxy that sets them.
func WithTrustProxy(trust bool) Option {
	return func(s *Server) { s.clientIP = middleware.ClientIP(trust) }
}

// New wires the stores and handlers. A nil comparisons cache disables
// comparison caching.
func New(db *sql.DB, comparisons cache.Comparisons, logger *slog.Logger, opts ...Option) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	tokenStore := store.NewTokenStore(db)
	catalogStore := store.NewCatalogStore(db)
	listStore := store.NewShoppingListStore(db)
	receiptStore := store.NewReceiptStore(db)

	s := &Server{
		db:          db,
		hub:         hub,
		authH:       handler.NewAuthHandler(userStore, tokenStore, logger.With("component", "auth")),
		catalogH:    handler.NewCatalogHandler(catalogStore, comparisons, hub, logger.With("component", "catalog")),
		listH:       handler.NewShoppingListHandler(listStore, comparisons, hub, logger.With("component", "shopping_list")),
		receiptH:    handler.NewReceiptHandler(receiptStore, logger.With("component", "receipt")),
		tokenStore:  tokenStore,
		rateLimiter: middleware.NewRateLimiter(),
		clientIP:    middleware.RemoteIP,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/login/{$}", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /api/auth/register/{$}", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireToken
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	outerMux.Handle("/", middleware.RequireToken(s.tokenStore)(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status":     status,
		"ws_clients": s.hub.ClientCount(),
	})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, s.clientIP, authRateLimit, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func staffOnly(h http.HandlerFunc) http.Handler {
	return middleware.RequireStaff(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Auth routes that require a token
	mux.HandleFunc("POST /api/auth/logout/{$}", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/profile/{$}", s.authH.Profile)
	mux.HandleFunc("GET /api/auth/preferred-stores/{$}", s.catalogH.ListPreferredStores)
	mux.HandleFunc("POST /api/auth/preferred-stores/add/{$}", s.catalogH.AddPreferredStore)
	mux.HandleFunc("DELETE /api/auth/preferred-stores/{store_id}/remove/{$}", s.catalogH.RemovePreferredStore)
	mux.HandleFunc("GET /api/auth/preferred-stores/{store_id}/check/{$}", s.catalogH.CheckPreferredStore)

	// Catalog API routes
	mux.HandleFunc("GET /api/products/stores/{$}", s.catalogH.ListStores)
	mux.Handle("POST /api/products/stores/create/{$}", staffOnly(s.catalogH.CreateStore))
	mux.HandleFunc("GET /api/products/{$}", s.catalogH.SearchProducts)
	mux.Handle("POST /api/products/create/{$}", staffOnly(s.catalogH.CreateProduct))
	mux.HandleFunc("GET /api/products/{id}/prices/{$}", s.catalogH.ProductPrices)
	mux.HandleFunc("POST /api/products/prices/add/{$}", s.catalogH.RecordPrice)
	mux.HandleFunc("GET /api/products/{id}/compare/{$}", s.catalogH.CompareProduct)
	mux.HandleFunc("POST /api/products/compare-multiple/{$}", s.catalogH.CompareMultiple)

	// Shopping list API routes
	mux.HandleFunc("GET /api/shopping-lists/{$}", s.listH.List)
	mux.HandleFunc("POST /api/shopping-lists/create/{$}", s.listH.Create)
	mux.HandleFunc("GET /api/shopping-lists/{id}/{$}", s.listH.Get)
	mux.HandleFunc("PATCH /api/shopping-lists/{id}/update/{$}", s.listH.Update)
	mux.HandleFunc("PUT /api/shopping-lists/{id}/update/{$}", s.listH.Update)
	mux.HandleFunc("DELETE /api/shopping-lists/{id}/delete/{$}", s.listH.Delete)
	mux.HandleFunc("POST /api/shopping-lists/{id}/duplicate/{$}", s.listH.Duplicate)
	mux.HandleFunc("POST /api/shopping-lists/generate-from-receipt/{$}", s.listH.GenerateFromReceipt)

	// Item routes
	mux.HandleFunc("GET /api/shopping-lists/{id}/items/{$}", s.listH.ListItems)
	mux.HandleFunc("POST /api/shopping-lists/{id}/items/add/{$}", s.listH.AddItem)
	mux.HandleFunc("POST /api/shopping-lists/{id}/items/bulk/{$}", s.listH.AddItems)
	mux.HandleFunc("GET /api/shopping-lists/{id}/items/{item_id}/{$}", s.listH.GetItem)
	mux.HandleFunc("PATCH /api/shopping-lists/{id}/items/{item_id}/update/{$}", s.listH.UpdateItem)
	mux.HandleFunc("PUT /api/shopping-lists/{id}/items/{item_id}/update/{$}", s.listH.UpdateItem)
	mux.HandleFunc("DELETE /api/shopping-lists/{id}/items/{item_id}/delete/{$}", s.listH.DeleteItem)
	mux.HandleFunc("POST /api/shopping-lists/{id}/items/{item_id}/toggle/{$}", s.listH.ToggleItem)
	mux.HandleFunc("POST /api/shopping-lists/{id}/items/clear-checked/{$}", s.listH.ClearChecked)
	mux.HandleFunc("POST /api/shopping-lists/{id}/items/reorder/{$}", s.listH.Reorder)

	// Pricing routes
	mux.HandleFunc("GET /api/shopping-lists/{id}/compare-prices/{$}", s.listH.ComparePrices)
	mux.HandleFunc("POST /api/shopping-lists/{id}/auto-estimate/{$}", s.listH.AutoEstimate)

	// Receipts
	mux.HandleFunc("GET /api/receipts/{$}", s.receiptH.List)
	mux.HandleFunc("POST /api/receipts/create/{$}", s.receiptH.Create)
	mux.HandleFunc("GET /api/receipts/stats/{$}", s.receiptH.Stats)
	mux.HandleFunc("GET /api/receipts/stats/monthly/{$}", s.receiptH.Monthly)
	mux.HandleFunc("GET /api/receipts/{id}/{$}", s.receiptH.Get)
	mux.HandleFunc("PATCH /api/receipts/{id}/update/{$}", s.receiptH.Update)
	mux.HandleFunc("PUT /api/receipts/{id}/update/{$}", s.receiptH.Update)
	mux.HandleFunc("DELETE /api/receipts/{id}/delete/{$}", s.receiptH.Delete)
	mux.HandleFunc("GET /api/receipts/{id}/items/{$}", s.receiptH.ListItems)
	mux.HandleFunc("POST /api/receipts/{id}/items/add/{$}", s.receiptH.AddItem)
	mux.HandleFunc("POST /api/receipts/{id}/items/bulk/{$}", s.receiptH.AddItems)
	mux.HandleFunc("PATCH /api/receipts/{id}/items/{item_id}/update/{$}", s.receiptH.UpdateItem)
	mux.HandleFunc("PUT /api/receipts/{id}/items/{item_id}/update/{$}", s.receiptH.UpdateItem)
	mux.HandleFunc("DELETE /api/receipts/{id}/items/{item_id}/delete/{$}", s.receiptH.DeleteItem)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}
