package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/RowanDark/veil/internal/api"
	"github.com/RowanDark/veil/internal/cipher"
	"github.com/RowanDark/veil/internal/config"
	"github.com/RowanDark/veil/internal/logging"
	"github.com/RowanDark/veil/internal/protocol"
	"github.com/RowanDark/veil/internal/service"
)

// backend is implemented by *service.Service for local use and by
// *api.Client when --remote is given.
type backend interface {
	DeriveMapping(ctx context.Context, id string) (cipher.Table, error)
	Encode(ctx context.Context, req service.EncodeRequest) (service.EncodeResult, error)
	Decode(ctx context.Context, req service.DecodeRequest) (service.DecodeResult, error)
	CreateProtocol(ctx context.Context) (protocol.Protocol, error)
	SyncProtocol(ctx context.Context, rawID string) (protocol.Protocol, bool, error)
	GetProtocol(ctx context.Context, id string) (protocol.Protocol, error)
	ListProtocols(ctx context.Context) ([]protocol.Protocol, error)
	DeleteProtocol(ctx context.Context, id string) error
	Assess(ctx context.Context, id string, stripWhitespace *bool, noiseLevel *int) (protocol.Assessment, error)
}

var (
	_ backend = (*service.Service)(nil)
	_ backend = (*api.Client)(nil)
)

type commonFlags struct {
	configPath string
	remote     string
	token      string
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	cf := &commonFlags{}
	fs.StringVar(&cf.configPath, "config", "", "path to a veil config file (default: ~/.veil/config.yaml then ./veil.yml)")
	fs.StringVar(&cf.remote, "remote", "", "address of a running veild to send the command to")
	fs.StringVar(&cf.token, "token", "", "auth token for --remote (default: auth_token from config)")
	return cf
}

func (cf *commonFlags) loadConfig() (config.Config, error) {
	if cf.configPath != "" {
		return config.LoadFile(cf.configPath)
	}
	return config.Load()
}

// open returns the backend selected by the flags and a function releasing it.
func (cf *commonFlags) open() (backend, config.Config, func(), error) {
	cfg, err := cf.loadConfig()
	if err != nil {
		return nil, config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}

	if cf.remote != "" {
		token := cf.token
		if token == "" {
			token = cfg.AuthToken
		}
		if token == "" {
			return nil, cfg, nil, errors.New("--token or auth_token is required with --remote")
		}
		client, closeConn, err := api.Dial(cf.remote, token)
		if err != nil {
			return nil, cfg, nil, err
		}
		return client, cfg, func() { _ = closeConn() }, nil
	}

	store, closeStore, err := service.OpenStore(cfg.Store)
	if err != nil {
		return nil, cfg, nil, fmt.Errorf("open protocol store: %w", err)
	}
	audit := logging.Discard()
	if cfg.AuditLog != "" {
		audit, err = logging.NewAuditLogger("veilctl", logging.WithoutStdout(), logging.WithFile(cfg.AuditLog))
		if err != nil {
			_ = closeStore()
			return nil, cfg, nil, fmt.Errorf("open audit log: %w", err)
		}
	}
	svc, err := service.New(service.Options{Store: store, Audit: audit, Defaults: cfg.Defaults})
	if err != nil {
		_ = audit.Close()
		_ = closeStore()
		return nil, cfg, nil, err
	}
	return svc, cfg, func() {
		_ = audit.Close()
		_ = closeStore()
	}, nil
}

// readText returns the positional arguments joined by spaces, or stdin when
// there are none or the only argument is "-".
func (c *cli) readText(args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(c.stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

// optionalInt and optionalBool report flags only when they were set, so unset
// flags fall through to configured defaults.
func optionalInt(fs *flag.FlagSet, name string, value int) *int {
	if !flagSet(fs, name) {
		return nil
	}
	return &value
}

func optionalBool(fs *flag.FlagSet, name string, value bool) *bool {
	if !flagSet(fs, name) {
		return nil
	}
	return &value
}

func flagSet(fs *flag.FlagSet, name string) bool {
	visited := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			visited = true
		}
	})
	return visited
}

func (c *cli) fail(err error) int {
	fmt.Fprintf(c.stderr, "error: %v\n", err)
	return 1
}
