package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/gestor-crm/gestor/internal/app"
	"github.com/gestor-crm/gestor/internal/auth"
	"github.com/gestor-crm/gestor/internal/crm"
	"github.com/gestor-crm/gestor/internal/observability"
	"github.com/gestor-crm/gestor/internal/rbac"
	"github.com/gestor-crm/gestor/internal/shared"
	"github.com/gestor-crm/gestor/internal/users"
	"github.com/gestor-crm/gestor/internal/view"
	"github.com/gestor-crm/gestor/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	store, closeStore, err := app.OpenSessionStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open session store", slog.String("store", cfg.SessionStore), slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	toasts := shared.NewToasts(8)
	notifiers := shared.Notifiers{toasts, shared.LogNotifier{Logger: logger}}

	var jobHandler *jobs.Handler
	if cfg.NotifyAsync {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		jobsClient, err := jobs.NewClient(redisOpts)
		if err != nil {
			logger.Error("init jobs client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := jobsClient.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			_ = inspector.Close()
		}()
		notifiers = append(notifiers, jobs.NewDispatcher(jobsClient, logger))
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	loginRole, _ := cfg.LoginRoleName()
	conflict, _ := cfg.ConflictPolicy()
	manager, err := auth.NewManager(store, auth.NewMockVerifier(cfg.VerifyDelay), notifiers, logger, auth.Options{
		LoginRole:        loginRole,
		Conflict:         conflict,
		OperationTimeout: cfg.OperationTimeout,
		Metrics:          metrics,
	})
	if err != nil {
		logger.Error("init session manager", slog.Any("error", err))
		os.Exit(1)
	}
	session := manager.Session()
	directory := users.NewDirectory(users.SampleMembers(time.Now().UTC())...)

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		AuthHandler: auth.NewHandler(logger, manager, templates, toasts),
		AuthGuard:   auth.Guard{Session: session, Templates: templates, Logger: logger, Metrics: metrics},
		CRMHandler: crm.NewHandler(logger, templates, toasts, notifiers, directory, rbac.Middleware{
			Session:   session,
			Templates: templates,
			Logger:    logger,
			Metrics:   metrics,
		}),
		AccessHandler: rbac.NewAccessHandler(session),
		JobHandler:    jobHandler,
		Metrics:       metrics,
		RequestLog:    !cfg.IsProduction(),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		manager.RestoreOnStart(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
