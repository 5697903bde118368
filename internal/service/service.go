package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/CZERTAINLY/blastweb/internal/model"

	gocron "github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

type Service struct {
	listen   string
	handler  http.Handler
	janitor  Janitor
	schedule gocron.JobDefinition
}

// New prepares the service. The janitor is scheduled only when enabled in cfg.
func New(ctx context.Context, cfg model.Config, handler http.Handler, sessions SessionSweeper) (*Service, error) {
	if cfg.Version != 0 {
		return nil, fmt.Errorf("config version %d is not supported, expected 0", cfg.Version)
	}
	ttl, err := model.ParseDuration(cfg.Server.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("parsing server.session_ttl: %w", err)
	}
	maxAge, err := model.ParseDuration(cfg.Janitor.MaxAge)
	if err != nil {
		return nil, fmt.Errorf("parsing janitor.max_age: %w", err)
	}

	s := &Service{
		listen:  cfg.Server.Listen,
		handler: handler,
		janitor: NewJanitor(sessions, ttl, cfg.Blast.TempDir, maxAge),
	}
	if cfg.Janitor.Enabled {
		s.schedule, err = jobDefinition(ctx, cfg.Janitor.Schedule)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Do listens on the configured address and serves until ctx is cancelled
func (s *Service) Do(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves HTTP requests on ln and runs the janitor until ctx is
// cancelled. It closes ln.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	if s.schedule != nil {
		scheduler, err := newScheduler(s.schedule, func() { s.janitor.Run(ctx) })
		if err != nil {
			_ = ln.Close()
			return err
		}
		scheduler.Start()
		defer func() {
			if err := scheduler.Shutdown(); err != nil {
				slog.ErrorContext(ctx, "shutting down gocron has failed", "error", err)
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.InfoContext(ctx, "listening", "addr", ln.Addr().String())
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		slog.InfoContext(ctx, "shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
