package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/assistant"
	"github.com/frahmantamala/expense-assistant/internal/category"
	"github.com/frahmantamala/expense-assistant/internal/core/events"
	"github.com/frahmantamala/expense-assistant/internal/expense"
	"github.com/frahmantamala/expense-assistant/internal/expense/postgres"
	"github.com/frahmantamala/expense-assistant/internal/session"
	"github.com/frahmantamala/expense-assistant/internal/transport"
	"github.com/frahmantamala/expense-assistant/internal/transport/middleware"
	"github.com/frahmantamala/expense-assistant/internal/transport/rest"
	"github.com/frahmantamala/expense-assistant/internal/transport/swagger"
	"github.com/frahmantamala/expense-assistant/internal/user"
	"github.com/frahmantamala/expense-assistant/internal/web"
	"github.com/frahmantamala/expense-assistant/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server for the JSON API, the form pages and the chat assistant`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config  *internal.Config
	DB      *sqlx.DB
	Monitor *postgres.HealthMonitor
	Bus     *events.EventBus
	Chats   session.Store
	Redis   *redis.Client
	Router  *chi.Mux
	Logger  *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		deps.close(ctx)
	case err := <-serverErrChan:
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

// close releases everything in reverse order of construction.
func (d *Dependencies) close(ctx context.Context) {
	d.Monitor.Stop()
	if err := d.Bus.Wait(ctx); err != nil {
		d.Logger.Warn("event handlers still running at shutdown", "error", err)
	}
	if memory, ok := d.Chats.(*session.MemoryStore); ok {
		memory.Stop()
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	cfg, err := loadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	if _, err := swagger.LoadSpec(ctx, cfg.Server.OpenAPIPath); err != nil {
		return nil, err
	}

	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// the server starts even when the store is down; reads are served from fixtures until a ping succeeds
	monitor := postgres.NewHealthMonitor(db, cfg.Store.PingTimeout, lg)
	monitor.Check(ctx)
	if err := monitor.Start(cfg.Store.HealthCheckSchedule); err != nil {
		return nil, fmt.Errorf("invalid store health check schedule: %w", err)
	}

	bus := events.NewEventBus(lg)
	expense.RegisterAuditTrail(bus, lg)

	repo := postgres.NewExpenseRepository(db, monitor,
		postgres.WithQueryTimeout(cfg.Store.QueryTimeout),
		postgres.WithLogger(lg),
	)
	expenseService := expense.NewService(repo, lg,
		expense.WithPolicy(expense.Policy{AllowRejectedResubmission: cfg.Lifecycle.AllowRejectedResubmission}),
		expense.WithPublisher(bus),
		expense.WithDefaultCurrency(cfg.Lifecycle.DefaultCurrency),
	)
	categoryService := category.NewService(expenseService, lg)
	userService := user.NewService(expenseService)

	store, redisClient, err := initSessionStore(ctx, cfg.Session, lg)
	if err != nil {
		return nil, err
	}
	chat := assistant.New(initChatClient(cfg.Assistant, lg), assistant.NewToolbox(expenseService, lg), store, lg,
		assistant.WithMaxToolRounds(cfg.Assistant.MaxToolRounds),
	)

	renderer, err := web.NewTemplateRenderer(cfg.Server.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	chatLimiter, err := middleware.NewRateLimiter(cfg.Assistant.ChatRateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid chat rate limit %q: %w", cfg.Assistant.ChatRateLimit, err)
	}

	base := transport.NewBaseHandler(lg)
	router := chi.NewRouter()

	opts := rest.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		OpenAPIPath:    cfg.Server.OpenAPIPath,
		Sessions:       session.NewManager(cfg.Security.SessionSecret, cfg.Session.CookieName, cfg.Session.TTL, cfg.Session.SecureCookie),
		ChatLimiter:    chatLimiter,
	}
	if cfg.Observability.Metrics.Enabled {
		opts.MetricsPath = cfg.Observability.Metrics.Path
	}

	rest.RegisterAllRoutes(router, rest.Handlers{
		Expense:   expense.NewHandler(base, expenseService),
		Category:  category.NewHandler(base, categoryService),
		User:      user.NewHandler(base, userService),
		Assistant: assistant.NewHandler(base, chat),
		Web:       web.NewHandler(base, expenseService, categoryService, userService, chat, renderer),
		Health:    rest.NewHealthHandler(monitor),
	}, opts, lg)

	return &Dependencies{
		Config:  cfg,
		DB:      db,
		Monitor: monitor,
		Bus:     bus,
		Chats:   store,
		Redis:   redisClient,
		Router:  router,
		Logger:  lg,
	}, nil
}

// initDB opens the pool without requiring the database to be up.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("pgx", cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return db, nil
}

// initSessionStore uses Redis when configured and reachable, otherwise keeps history in process.
func initSessionStore(ctx context.Context, cfg internal.SessionConfig, lg *slog.Logger) (session.Store, *redis.Client, error) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err := client.Ping(pingCtx).Err()
		if err == nil {
			return session.NewRedisStore(client, cfg.TTL), client, nil
		}
		lg.Warn("redis unreachable, keeping chat history in memory", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
	}

	memory := session.NewMemoryStore(cfg.TTL)
	if err := memory.StartSweeper(cfg.SweepSchedule); err != nil {
		return nil, nil, fmt.Errorf("invalid session sweep schedule: %w", err)
	}
	return memory, nil, nil
}

// initChatClient falls back to UnavailableClient when no endpoint can be used.
func initChatClient(cfg internal.AssistantConfig, lg *slog.Logger) assistant.ChatClient {
	if !cfg.Enabled {
		lg.Info("chat assistant disabled")
		return assistant.UnavailableClient{}
	}

	client, err := assistant.NewCompletionClient(assistant.ClientConfig{
		Provider:                cfg.Provider,
		Endpoint:                cfg.Endpoint,
		Deployment:              cfg.Deployment,
		APIVersion:              cfg.APIVersion,
		APIKey:                  cfg.APIKey,
		ManagedIdentityClientID: cfg.ManagedIdentityClientID,
		Timeout:                 cfg.Timeout,
	})
	if err != nil {
		if stderrors.Is(err, assistant.ErrNotConfigured) {
			lg.Warn("chat assistant endpoint not configured")
		} else {
			lg.Error("failed to create chat client", "error", err)
		}
		return assistant.UnavailableClient{}
	}
	return client
}
