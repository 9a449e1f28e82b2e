// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"storefront-wallet/internal/api/handler"
)

// NewRouter sets up and returns a new HTTP router.
func NewRouter(walletHandler *handler.WalletHandler, allowedOrigins []string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(handler.DefaultTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// User bootstrap
	r.Post("/users", walletHandler.CreateUser)

	// Wallet API routes
	r.Route("/wallets/{userID}", func(r chi.Router) {
		r.Get("/", walletHandler.GetWallet)
		r.Post("/topup", walletHandler.TopUp)
		r.Post("/charge", walletHandler.Charge)
		r.Put("/currency", walletHandler.ChangeCurrency)
		r.Get("/transactions", walletHandler.GetTransactionHistory)
	})

	// Read-only conversion quote for price display
	r.Get("/rates/convert", walletHandler.ConvertQuote)

	return r
}
