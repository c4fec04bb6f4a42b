package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/RowanDark/veil/internal/api"
	"github.com/RowanDark/veil/internal/config"
	"github.com/RowanDark/veil/internal/logging"
	"github.com/RowanDark/veil/internal/service"
)

var version = "dev"

const shutdownGrace = 2 * time.Second

func main() {
	addr := flag.String("addr", "", "address for the gRPC server to listen on (default: server_addr from config)")
	token := flag.String("token", "", "authentication token required from clients (default: auth_token from config)")
	configPath := flag.String("config", "", "path to a veil config file")
	showVersion := flag.Bool("version", false, "print veild version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}
	if *addr != "" {
		cfg.ServerAddr = *addr
	}
	if *token != "" {
		cfg.AuthToken = *token
	}
	if cfg.AuthToken == "" {
		fmt.Fprintln(os.Stderr, "--token must be provided")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func run(ctx context.Context, cfg config.Config) error {
	lis, err := net.Listen("tcp", cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ServerAddr, err)
	}
	defer func() {
		if err := lis.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("failed to close listener: %v", err)
		}
	}()

	opts := []logging.Option{}
	if cfg.AuditLog != "" {
		opts = append(opts, logging.WithFile(cfg.AuditLog))
	}
	audit, err := logging.NewAuditLogger("veild", opts...)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer audit.Close()

	return serve(ctx, lis, cfg, audit)
}

func serve(ctx context.Context, lis net.Listener, cfg config.Config, audit *logging.AuditLogger) error {
	if cfg.AuthToken == "" {
		return errors.New("auth token must be provided")
	}

	store, closeStore, err := service.OpenStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("open protocol store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Printf("failed to close protocol store: %v", err)
		}
	}()

	svc, err := service.New(service.Options{
		Store:    store,
		Audit:    audit.WithComponent("service"),
		Defaults: cfg.Defaults,
	})
	if err != nil {
		return err
	}
	srv, err := api.NewGRPCServer(svc, cfg.AuthToken, audit.WithComponent("api"))
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()

		done := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(shutdownGrace):
			srv.Stop()
		}
	}()

	log.Printf("veild listening on %s (store: %s)", lis.Addr(), cfg.Store.Backend)
	if err := srv.Serve(lis); err != nil {
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
	return nil
}
