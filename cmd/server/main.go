// Package main is the entrypoint for the TaskForge API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kiranshivaraju/taskforge/internal/api"
	"github.com/kiranshivaraju/taskforge/internal/api/handler"
	mw "github.com/kiranshivaraju/taskforge/internal/api/middleware"
	"github.com/kiranshivaraju/taskforge/internal/api/response"
	"github.com/kiranshivaraju/taskforge/internal/auth"
	"github.com/kiranshivaraju/taskforge/internal/cache"
	"github.com/kiranshivaraju/taskforge/internal/config"
	"github.com/kiranshivaraju/taskforge/internal/metrics"
	"github.com/kiranshivaraju/taskforge/internal/service"
	"github.com/kiranshivaraju/taskforge/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, failing fast when invalid
	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Metrics registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 6. Build services and router
	pgStore := store.NewPostgresStore(pool)
	router, identity := newServer(cfg, pgStore, redisCache, reg)

	if cfg.SuperAdmin.Enabled() {
		created, err := identity.EnsureSuperAdmin(ctx, cfg.SuperAdmin.Email, cfg.SuperAdmin.Password, cfg.SuperAdmin.FullName)
		if err != nil {
			return fmt.Errorf("seed super admin: %w", err)
		}
		if created {
			slog.Info("super admin created", "email", cfg.SuperAdmin.Email)
		}
	}

	// 7. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// newServer wires services, middleware and handlers onto the router. The
// identity service is returned so the caller can seed the platform account.
func newServer(cfg *config.Config, st store.Store, c cache.Cache, reg *prometheus.Registry) (http.Handler, *service.IdentityService) {
	m := metrics.New(reg)

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)

	identity := service.NewIdentityService(st, hasher, tokens, c)
	tenants := service.NewTenantService(st)
	users := service.NewUserService(st, hasher)
	projects := service.NewProjectService(st)
	tasks := service.NewTaskService(st)

	deps := api.Dependencies{
		Auth:           mw.NewAuth(identity, m),
		RateLimit:      mw.NewRateLimit(c, "api", cfg.RateLimit.PerMinute, mw.ByUser),
		LoginRateLimit: mw.NewRateLimit(c, "login", cfg.RateLimit.LoginPerMinute, mw.ByClientIP),
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),

		HealthHandler: healthHandler(st, c),

		RegisterTenantHandler: handler.NewRegisterTenantHandler(identity, m),
		LoginHandler:          handler.NewLoginHandler(identity, m),
		MeHandler:             handler.NewMeHandler(identity, m),
		LogoutHandler:         handler.NewLogoutHandler(identity, m),

		ListTenantsHandler:  handler.NewListTenantsHandler(tenants, m),
		GetTenantHandler:    handler.NewGetTenantHandler(tenants, m),
		UpdateTenantHandler: handler.NewUpdateTenantHandler(tenants, m),

		AddUserHandler:    handler.NewAddUserHandler(users, m),
		ListUsersHandler:  handler.NewListUsersHandler(users, m),
		UpdateUserHandler: handler.NewUpdateUserHandler(users, m),
		DeleteUserHandler: handler.NewDeleteUserHandler(users, m),

		CreateProjectHandler: handler.NewCreateProjectHandler(projects, m),
		ListProjectsHandler:  handler.NewListProjectsHandler(projects, m),
		GetProjectHandler:    handler.NewGetProjectHandler(projects, m),
		UpdateProjectHandler: handler.NewUpdateProjectHandler(projects, m),
		DeleteProjectHandler: handler.NewDeleteProjectHandler(projects, m),

		CreateTaskHandler:       handler.NewCreateTaskHandler(tasks, m),
		ListProjectTasksHandler: handler.NewListProjectTasksHandler(tasks, m),
		ListTasksHandler:        handler.NewListTasksHandler(tasks, m),
		GetTaskHandler:          handler.NewGetTaskHandler(tasks, m),
		UpdateTaskHandler:       handler.NewUpdateTaskHandler(tasks, m),
		UpdateTaskStatusHandler: handler.NewUpdateTaskStatusHandler(tasks, m),
		DeleteTaskHandler:       handler.NewDeleteTaskHandler(tasks, m),
	}

	return api.NewRouter(deps), identity
}

type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler checks database and cache connectivity.
func healthHandler(db, c pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		var degraded []string
		if err := db.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
			degraded = append(degraded, "database")
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
			degraded = append(degraded, "cache")
		}

		if len(degraded) > 0 {
			slog.Warn("health check degraded", "services", degraded)
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"Services degraded: "+strings.Join(degraded, ", "))
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
