// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

// Command server runs the Interlock access-control and security
// monitoring service.
//
// All components are constructed here and wired by explicit dependency
// injection; nothing in the internal packages reaches for globals beyond
// the process-wide logger.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/interlockhq/interlock/internal/api"
	"github.com/interlockhq/interlock/internal/auth"
	"github.com/interlockhq/interlock/internal/config"
	"github.com/interlockhq/interlock/internal/dashboard"
	"github.com/interlockhq/interlock/internal/logging"
	"github.com/interlockhq/interlock/internal/monitor"
	"github.com/interlockhq/interlock/internal/rbac"
)

func main() {
	configPath := flag.String("config", "", "path to config file (overrides INTERLOCK_CONFIG_PATH)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run(configPath string) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Timestamp: true,
	})

	if cfg.Auth.JWTSecret == "" {
		if !cfg.Debug() {
			return errors.New("auth.jwt_secret is required in production")
		}
		logging.Warn().Msg("No JWT secret configured, using development default")
		cfg.Auth.JWTSecret = "interlock-dev-secret"
	}

	securityLog := logging.NewSecurityLog(logging.SecurityLogConfig{
		FilePath:   cfg.Security.SecurityLogPath,
		MaxSizeMB:  cfg.Security.SecurityLogSizeMB,
		MaxBackups: cfg.Security.SecurityLogBackups,
	})
	defer securityLog.Close()

	mon, err := monitor.New(monitor.Config{
		LoginFailureThreshold: cfg.Security.LoginFailureThreshold,
		LoginFailureWindow:    cfg.Security.LoginFailureWindow,
		RateLimitThreshold:    cfg.Security.RateLimitThreshold,
		RateLimitWindow:       cfg.Security.RateLimitWindow,
		MaliciousIPFile:       cfg.Security.MaliciousIPFile,
		Debug:                 cfg.Debug(),
	}, securityLog)
	if err != nil {
		return err
	}

	manager := rbac.NewManager(mon, &rbac.ManagerConfig{
		SlowCheckThreshold: cfg.Security.SlowCheckThreshold,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, 0)
	authMW := auth.NewMiddleware(tokens, mon, manager)
	guards := rbac.NewMiddleware(manager)
	dash := dashboard.New(mon)
	handlers := api.NewHandlers(manager, mon, dash)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      api.NewRouter(cfg, handlers, authMW, guards, mon),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.Info().
			Str("addr", server.Addr).
			Str("environment", cfg.Server.Environment).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logging.Info().Msg("Shutdown complete")
	return nil
}
