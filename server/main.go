package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ponyo877/chatrelay/relaypb"
	"github.com/ponyo877/chatrelay/server/adaptor"
	"github.com/ponyo877/chatrelay/server/config"
	"github.com/ponyo877/chatrelay/server/domain"
	"github.com/ponyo877/chatrelay/server/logger"
	"github.com/ponyo877/chatrelay/server/repository"
	"github.com/ponyo877/chatrelay/server/usecase"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

const shutdownTimeout = 10 * time.Second

var cfgFile string

func main() {
	v := viper.New()
	config.SetDefaults(v)

	rootCmd := &cobra.Command{
		Use:           "chatrelay-server",
		Short:         "Room-scoped real-time chat relay",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	if err := config.BindFlags(v, rootCmd.Flags()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chatrelay-server:", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Log) (*slog.Logger, error) {
	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logger.Init(logger.Config{
		Service:   cfg.Service,
		Version:   cfg.Version,
		Level:     level,
		Env:       logger.ParseEnv(cfg.Env),
		Backend:   logger.Backend(cfg.Backend),
		AddSource: cfg.AddSource,
	}), nil
}

func openRepository(ctx context.Context, cfg config.Store) (usecase.Repository, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := repository.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return repository.NewPostgresRepository(pool), nil
	case config.DriverMemory:
		return repository.NewMemoryRepository(), nil
	default:
		db, err := repository.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return repository.NewSQLiteRepository(db), nil
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	rp, err := openRepository(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer func() {
		if err := rp.Close(); err != nil {
			log.Error("close history store", "err", err)
		}
	}()

	sessions := domain.NewSessionTable()
	rooms := domain.NewRoomRegistry(sessions, log.With("component", "rooms"))
	hub := domain.NewHub()
	archiver := usecase.NewArchiver(rp, usecase.ArchiverConfig{
		QueueSize:    cfg.Archive.QueueSize,
		WriteTimeout: cfg.Archive.WriteTimeout,
	}, log)
	presence := usecase.NewPresenceUsecase(sessions, rooms, hub, rp, usecase.Config{
		HistoryLimit:   cfg.History.Limit,
		HistoryTimeout: cfg.History.Timeout,
	}, log)
	messages := usecase.NewMessageUsecase(sessions, rooms, hub, archiver, log)
	stream := usecase.NewStreamUsecase(hub, presence, messages, log)
	uc := usecase.NewUsecase(rp, sessions, rooms, hub, messages)

	// Live WebSocket connections outlive http.Server.Shutdown and gRPC Connect
	// streams never end on their own; cancelling connCtx closes both.
	connCtx, cancelConns := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelConns()

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(adaptor.UnaryLoggingInterceptor(log)),
		grpc.ChainStreamInterceptor(adaptor.StreamLoggingInterceptor(log)),
	)
	relaypb.RegisterRelayServer(s, adaptor.NewAdaptor(connCtx, uc, stream, cfg.Transport.SendBuffer, log))
	reflection.Register(s)

	ws := adaptor.NewWebSocketServer(stream, adaptor.WebSocketConfig{
		SendBuffer:     cfg.Transport.SendBuffer,
		PingInterval:   cfg.Transport.PingInterval,
		ReadLimit:      cfg.Transport.ReadLimit,
		AllowedOrigins: cfg.Transport.AllowedOrigins,
	}, log)
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           adaptor.NewHTTPServer(uc, ws, log).Router(cfg.Transport.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return connCtx },
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("grpc server listening", "addr", cfg.GRPCAddr)
		if err := s.Serve(grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		log.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case serveErr = <-errCh:
		log.Error("server failed", "err", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "err", err)
	}
	cancelConns()

	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		log.Warn("grpc graceful stop timed out, forcing")
		s.Stop()
	}

	if err := archiver.Close(shutdownCtx); err != nil {
		log.Warn("archiver drain incomplete", "err", err)
	}
	log.Info("stopped", "stats", uc.GetStats())
	return serveErr
}
