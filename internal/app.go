// internal/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	router "storefront-wallet/internal/api"
	"storefront-wallet/internal/api/handler"
	"storefront-wallet/internal/config"
	"storefront-wallet/internal/currency"
	"storefront-wallet/internal/repository"
	"storefront-wallet/internal/repository/postgres"
	"storefront-wallet/internal/service"
	"storefront-wallet/internal/util"
	"storefront-wallet/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *sqlx.DB

	// Repositories
	UserRepository        repository.UserRepository
	WalletRepository      repository.WalletRepository
	TransactionRepository repository.TransactionRepository
	RateRepository        repository.RateRepository

	// Currency resolution
	RateResolver *currency.Resolver

	// Services
	WalletService service.WalletService

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger()
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.")

	// 3. Connect to Database
	database, err := db.NewPostgresDB(app.Config.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.Info("Database connection established.")

	// 4. Initialize Repositories
	app.UserRepository = postgres.NewUserRepository(app.DB)
	app.WalletRepository = postgres.NewWalletRepository(app.DB)
	app.TransactionRepository = postgres.NewTransactionRepository(app.DB)
	app.RateRepository = postgres.NewRateRepository(app.DB)
	app.Logger.Info("Repositories initialized.")

	// 5. Initialize the exchange rate resolver
	provider := currency.NewHTTPProvider(app.Config.Currency.APIURL, app.Config.Currency.FetchTimeout)
	app.RateResolver = currency.NewResolver(
		provider,
		app.RateRepository,
		app.DB,
		app.Config.Currency.FetchEnabled,
		app.Config.Currency.FetchTimeout,
		app.Config.Currency.CacheTTL,
		nil, // wall clock
		app.Logger,
	)
	app.Logger.Info("Exchange rate resolver initialized.", "fetch_enabled", app.Config.Currency.FetchEnabled)

	// 6. Initialize Services
	app.WalletService = service.NewWalletService(
		app.DB, // This is the DBTxBeginner
		app.DB, // This is the DBExecutor
		app.UserRepository,
		app.WalletRepository,
		app.TransactionRepository,
		app.RateResolver,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
		app.Logger,
	)
	app.Logger.Info("Services initialized.")

	// 7. Initialize HTTP Handlers and Router
	walletHandler := handler.NewWalletHandler(app.WalletService, app.RateResolver, app.Logger)
	app.HTTPHandler = router.NewRouter(walletHandler, app.Config.AllowedOrigins, app.Logger)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
