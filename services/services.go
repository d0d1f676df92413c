package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JokingLove/whale-alert-sync/config"
	"github.com/JokingLove/whale-alert-sync/database"
	"github.com/JokingLove/whale-alert-sync/worker"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// SummaryProvider exposes the outcome of the most recent poll cycle.
type SummaryProvider interface {
	LastSummary() *worker.CycleSummary
}

type StatusServer struct {
	cfg     config.ServerConfig
	db      *database.DB
	summary SummaryProvider

	server   *http.Server
	listener net.Listener
	stopped  atomic.Bool
}

func NewStatusServer(db *database.DB, cfg config.ServerConfig, summary SummaryProvider) (*StatusServer, error) {
	if db == nil {
		return nil, errors.New("status server requires a database")
	}
	ss := &StatusServer{
		cfg:     cfg,
		db:      db,
		summary: summary,
	}
	ss.server = &http.Server{
		Handler:           ss.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return ss, nil
}

func (ss *StatusServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", ss.handleHealth)
	mux.HandleFunc("GET /status", ss.handleStatus)
	mux.HandleFunc("GET /transactions/latest", ss.handleLatestTransactions)
	mux.HandleFunc("GET /address/classify", ss.handleClassify)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Start binds synchronously so a bad address fails startup, then serves in the
// background.
func (ss *StatusServer) Start(ctx context.Context) error {
	addr := net.JoinHostPort(ss.cfg.Host, fmt.Sprint(ss.cfg.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("could not start status listener on %s: %w", addr, err)
	}
	ss.listener = listener
	log.Info("status server started", "addr", listener.Addr())

	go func() {
		if err := ss.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("status server stopped unexpectedly", "err", err)
		}
	}()
	return nil
}

// Addr is the bound address, useful when the configured port is 0.
func (ss *StatusServer) Addr() net.Addr {
	if ss.listener == nil {
		return nil
	}
	return ss.listener.Addr()
}

func (ss *StatusServer) Stop(ctx context.Context) error {
	defer ss.stopped.Store(true)
	if ss.listener == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := ss.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	return nil
}

func (ss *StatusServer) Stopped() bool {
	return ss.stopped.Load()
}
