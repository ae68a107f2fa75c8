package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dalproject/dald/internal/shell/api"
	"github.com/dalproject/dald/internal/shell/deployer"
	"github.com/dalproject/dald/internal/shell/ipfs"
	"github.com/dalproject/dald/internal/shell/ledger"
	"github.com/dalproject/dald/internal/shell/mirror"
	"github.com/dalproject/dald/internal/shell/store"
	"github.com/dalproject/dald/internal/shell/submit"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitLedgerError     = 3
	ExitHTTPServerError = 4
)

// =============================================================================
// Server
// =============================================================================

// Server represents the dald application server.
type Server struct {
	config     *Config
	httpServer *http.Server
	store      store.Repository
	logger     *slog.Logger
}

// NewServer creates a new server with the given config.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	// Connect to database
	repo, err := store.NewSQLiteRepository(cfg.Database.DSN)
	if err != nil {
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitDatabaseError,
		}
	}

	// Content-store client
	content := ipfs.NewClient(ipfs.Config{
		APIURL:    cfg.IPFS.APIURL,
		Gateways:  cfg.IPFS.Gateways,
		AuthToken: cfg.IPFS.AuthToken,
		Timeout:   cfg.IPFS.Timeout,
	}, logger)

	// Ledger client, optional
	var chain ledger.Ledger
	if cfg.Ledger.Enabled {
		ethClient, err := ledger.NewEthClient(ledger.Config{
			RPCURL:         cfg.Ledger.RPCURL,
			PrivateKeyHex:  cfg.Ledger.PrivateKey,
			ChainID:        cfg.Ledger.ChainID,
			ConfirmTimeout: cfg.Ledger.ConfirmTimeout,
		}, logger)
		if err != nil {
			repo.Close()
			return nil, &ServerError{
				Op:       "NewServer",
				Err:      err,
				ExitCode: ExitLedgerError,
			}
		}
		chain = ethClient
		logger.Info("ledger enabled",
			"rpc_url", cfg.Ledger.RPCURL,
			"chain_id", cfg.Ledger.ChainID,
			"signer", ethClient.SignerAddress(),
		)
	} else {
		logger.Info("ledger disabled, chain steps will be skipped")
	}

	// Local engine mirror, optional
	var saver deployer.LocalSaver
	if cfg.Engine.LocalRoot != "" {
		saver = mirror.NewMirror(mirror.Config{EngineRoot: cfg.Engine.LocalRoot}, logger)
		logger.Info("local engine enabled", "root", cfg.Engine.LocalRoot)
	}

	// Remote engine submitter, optional
	var submitter *submit.Submitter
	if cfg.Engine.RemoteURL != "" {
		submitter = submit.NewSubmitter(submit.Config{
			BaseURL:   cfg.Engine.RemoteURL,
			AuthToken: cfg.Engine.RemoteToken,
			Timeout:   cfg.Engine.RemoteTimeout,
		}, logger)
		logger.Info("remote engine enabled", "url", cfg.Engine.RemoteURL)
	}

	// Deployment orchestrator
	var remoteSubmitter deployer.RemoteSubmitter
	var workflows api.WorkflowStatusClient
	if submitter != nil {
		remoteSubmitter = submitter
		workflows = submitter
	}
	dep := deployer.NewDeployer(repo, content, chain, saver, remoteSubmitter, logger)

	// HTTP handler
	handler := api.NewHandler(repo, dep, workflows, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		store:      repo,
		logger:     logger,
	}, nil
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			"address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		return &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	// Shutdown HTTP server
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	// Close database
	if err := s.store.Close(); err != nil {
		s.logger.Error("database close error", "error", err)
	}

	s.logger.Info("shutdown complete")
	return nil
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
