package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// EventLogger tails checkpoint events until its context ends.
type EventLogger interface {
	RunLogger(ctx context.Context, logger zerolog.Logger) error
}

type Options struct {
	Addr string
	// Listener, when set, is served instead of listening on Addr.
	Listener     net.Listener
	Chat         ChatService
	Janitor      *Janitor
	Events       EventLogger
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server runs the HTTP API together with its background loops.
type Server struct {
	httpSrv  *http.Server
	listener net.Listener
	janitor  *Janitor
	events   EventLogger
}

func New(opts Options) (*Server, error) {
	if opts.Chat == nil {
		return nil, errors.New("server: chat service is required")
	}
	if strings.TrimSpace(opts.Addr) == "" && opts.Listener == nil {
		return nil, errors.New("server: addr is required")
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 2 * time.Minute
	}
	httpSrv := &http.Server{
		Addr:              opts.Addr,
		Handler:           NewHandler(opts.Chat),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
	}
	return &Server{httpSrv: httpSrv, listener: opts.Listener, janitor: opts.Janitor, events: opts.Events}, nil
}

func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts down
// gracefully and waits for the background loops.
func (s *Server) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("ctx is nil")
	}
	if s == nil || s.httpSrv == nil {
		return errors.New("server is not initialized")
	}
	eg := errgroup.Group{}
	srvCtx, srvCancel := context.WithCancel(ctx)
	defer srvCancel()

	if s.janitor != nil {
		eg.Go(func() error { return s.janitor.Run(srvCtx) })
	}
	if s.events != nil {
		eg.Go(func() error {
			logger := log.With().Str("component", "events").Logger()
			if err := s.events.RunLogger(srvCtx, logger); err != nil {
				log.Warn().Err(err).Msg("checkpoint event logger stopped")
			}
			return nil
		})
	}

	eg.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			log.Info().Msg("received interrupt signal, shutting down gracefully...")
		case <-srvCtx.Done():
			log.Info().Msg("context done, shutting down gracefully...")
		}
		srvCancel()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
			return err
		}
		log.Info().Msg("server shutdown complete")
		return nil
	})

	eg.Go(func() error {
		var err error
		if s.listener != nil {
			log.Info().Str("addr", s.listener.Addr().String()).Msg("starting faqchat server")
			err = s.httpSrv.Serve(s.listener)
		} else {
			log.Info().Str("addr", s.httpSrv.Addr).Msg("starting faqchat server")
			err = s.httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server listen error")
			srvCancel()
			return err
		}
		return nil
	})

	return eg.Wait()
}
