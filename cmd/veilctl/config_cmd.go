package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/RowanDark/veil/internal/config"
)

func (c *cli) runConfig(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(c.stderr, "config subcommand required")
		return 2
	}
	switch args[0] {
	case "print":
		fs := flag.NewFlagSet("config print", flag.ContinueOnError)
		fs.SetOutput(c.stderr)
		cf := addCommonFlags(fs)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		cfg, err := cf.loadConfig()
		if err != nil {
			return c.fail(fmt.Errorf("load config: %w", err))
		}
		printResolvedConfig(c.stdout, cfg)
		return 0
	default:
		fmt.Fprintf(c.stderr, "unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func printResolvedConfig(out io.Writer, cfg config.Config) {
	token := ""
	if cfg.AuthToken != "" {
		token = "(set)"
	}
	fmt.Fprintf(out, "server_addr: %s\n", cfg.ServerAddr)
	fmt.Fprintf(out, "auth_token: %s\n", token)
	fmt.Fprintf(out, "audit_log: %s\n", cfg.AuditLog)
	fmt.Fprintln(out, "store:")
	fmt.Fprintf(out, "  backend: %s\n", cfg.Store.Backend)
	fmt.Fprintf(out, "  path: %s\n", cfg.Store.Path)
	fmt.Fprintf(out, "  redis_url: %s\n", cfg.Store.RedisURL)
	fmt.Fprintf(out, "  redis_prefix: %s\n", cfg.Store.RedisPrefix)
	fmt.Fprintf(out, "  etcd_endpoints: %s\n", strings.Join(cfg.Store.EtcdEndpoints, ","))
	fmt.Fprintf(out, "  etcd_prefix: %s\n", cfg.Store.EtcdPrefix)
	fmt.Fprintln(out, "defaults:")
	fmt.Fprintf(out, "  protocol_id: %s\n", cfg.Defaults.ProtocolID)
	fmt.Fprintf(out, "  noise_level: %d\n", cfg.Defaults.NoiseLevel)
	fmt.Fprintf(out, "  strip_whitespace: %t\n", cfg.Defaults.StripWhitespace)
}
