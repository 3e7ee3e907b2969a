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

	"bestwishes/internal/auth"
	"bestwishes/internal/config"
	"bestwishes/internal/db"
	"bestwishes/internal/httpserver"
	"bestwishes/internal/mailer"
	"bestwishes/internal/migrate"
	productrepo "bestwishes/internal/repository/product"
	purchaserepo "bestwishes/internal/repository/purchase"
	userrepo "bestwishes/internal/repository/user"
	paymentsvc "bestwishes/internal/service/payment"
	purchasesvc "bestwishes/internal/service/purchase"
	"bestwishes/pkg/logging"
)

func main() {
	logging.Setup()
	logger := slog.Default()
	cfg := config.FromEnv()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Error("connect to db", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.MigrateOnBoot {
		if err := migrate.Apply(ctx, pool); err != nil {
			logger.Error("apply migrations", "err", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	mail, err := mailer.NewSMTP(mailer.Config{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUsername,
		Password:    cfg.SMTPPassword,
		From:        cfg.MailFrom,
		FrontendURL: cfg.FrontendURL,
	})
	if err != nil {
		logger.Error("init mailer", "err", err)
		os.Exit(1)
	}

	purchaseRepo := purchaserepo.NewPostgres(pool)
	productRepo := productrepo.NewPostgres(pool)
	userRepo := userrepo.NewPostgres(pool)

	paymentService := paymentsvc.New(paymentsvc.NewStripe(cfg.StripeSecretKey))
	purchaseService := purchasesvc.New(purchaseRepo, productRepo, mail, paymentService, logger, cfg.PaymentWindow)
	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	router := httpserver.NewRouter(httpserver.Deps{
		Purchases:      purchaseService,
		Payments:       paymentService,
		Users:          userRepo,
		Tokens:         tokens,
		DB:             pool,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	srv := httpserver.New(cfg.HTTPAddr, logger, router)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go expireSweeper(sweepCtx, purchaseService, cfg.SweepInterval, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("server error", "err", err)
	}

	stopSweep()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	} else {
		logger.Info("server stopped")
	}
}

// expireSweeper periodically flips overdue pending purchases to expired so
// they do not rely solely on the lazy check at payment time.
func expireSweeper(ctx context.Context, svc *purchasesvc.Service, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.ExpireOverdue(ctx)
			if err != nil {
				logger.Error("expire overdue purchases", "err", err)
				continue
			}
			if n > 0 {
				logger.Info("expired overdue purchases", "count", n)
			}
		}
	}
}
