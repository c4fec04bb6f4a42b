package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/RowanDark/veil/internal/protocol"
)

func (c *cli) runProtocol(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(c.stderr, "protocol subcommand required")
		return 2
	}
	switch args[0] {
	case "new":
		return c.runProtocolNew(args[1:])
	case "sync":
		return c.runProtocolSync(args[1:])
	case "list":
		return c.runProtocolList(args[1:])
	case "show":
		return c.runProtocolShow(args[1:])
	case "delete":
		return c.runProtocolDelete(args[1:])
	case "rate":
		return c.runProtocolRate(args[1:])
	default:
		fmt.Fprintf(c.stderr, "unknown protocol subcommand: %s\n", args[0])
		return 2
	}
}

func (c *cli) runProtocolNew(args []string) int {
	fs := flag.NewFlagSet("protocol new", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	cf := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(c.stderr, "protocol new takes no arguments")
		return 2
	}

	b, _, closeFn, err := cf.open()
	if err != nil {
		return c.fail(err)
	}
	defer closeFn()

	p, err := b.CreateProtocol(context.Background())
	if err != nil {
		return c.fail(err)
	}
	printProtocol(c.stdout, p)
	return 0
}

func (c *cli) runProtocolSync(args []string) int {
	fs := flag.NewFlagSet("protocol sync", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	cf := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "protocol sync requires exactly one protocol id")
		return 2
	}

	b, _, closeFn, err := cf.open()
	if err != nil {
		return c.fail(err)
	}
	defer closeFn()

	p, created, err := b.SyncProtocol(context.Background(), fs.Arg(0))
	if err != nil {
		return c.fail(err)
	}
	if created {
		fmt.Fprintf(c.stderr, "stored new protocol %s\n", p.ID)
	}
	printProtocol(c.stdout, p)
	return 0
}

func (c *cli) runProtocolList(args []string) int {
	fs := flag.NewFlagSet("protocol list", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	cf := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	b, _, closeFn, err := cf.open()
	if err != nil {
		return c.fail(err)
	}
	defer closeFn()

	list, err := b.ListProtocols(context.Background())
	if err != nil {
		return c.fail(err)
	}
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCREATED")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, formatCreated(p))
	}
	if err := tw.Flush(); err != nil {
		return c.fail(err)
	}
	return 0
}

func (c *cli) runProtocolShow(args []string) int {
	fs := flag.NewFlagSet("protocol show", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	cf := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "protocol show requires exactly one protocol id")
		return 2
	}

	b, _, closeFn, err := cf.open()
	if err != nil {
		return c.fail(err)
	}
	defer closeFn()

	var p protocol.Protocol
	if protocol.IsLegacy(fs.Arg(0)) {
		p = protocol.Legacy()
	} else if p, err = b.GetProtocol(context.Background(), fs.Arg(0)); err != nil {
		return c.fail(err)
	}
	printProtocol(c.stdout, p)
	return 0
}

func (c *cli) runProtocolDelete(args []string) int {
	fs := flag.NewFlagSet("protocol delete", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	cf := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "protocol delete requires exactly one protocol id")
		return 2
	}

	b, _, closeFn, err := cf.open()
	if err != nil {
		return c.fail(err)
	}
	defer closeFn()

	if err := b.DeleteProtocol(context.Background(), fs.Arg(0)); err != nil {
		return c.fail(err)
	}
	fmt.Fprintf(c.stdout, "deleted %s\n", fs.Arg(0))
	return 0
}

func (c *cli) runProtocolRate(args []string) int {
	fs := flag.NewFlagSet("protocol rate", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	cf := addCommonFlags(fs)
	noise := fs.Int("noise", 0, "noise level 0-2 (default: defaults.noise_level)")
	strip := fs.Bool("strip", false, "rate with whitespace stripping (default: defaults.strip_whitespace)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(c.stderr, "protocol rate takes at most one protocol id")
		return 2
	}

	b, _, closeFn, err := cf.open()
	if err != nil {
		return c.fail(err)
	}
	defer closeFn()

	a, err := b.Assess(context.Background(), fs.Arg(0), optionalBool(fs, "strip", *strip), optionalInt(fs, "noise", *noise))
	if err != nil {
		return c.fail(err)
	}
	fmt.Fprintf(c.stdout, "rating: %s\n", a.Rating)
	fmt.Fprintf(c.stdout, "score: %d\n", a.Score)
	fmt.Fprintf(c.stdout, "crack estimate: %s\n", a.CrackEstimate)
	return 0
}

func printProtocol(out io.Writer, p protocol.Protocol) {
	fmt.Fprintf(out, "id: %s\n", p.ID)
	fmt.Fprintf(out, "name: %s\n", p.Name)
	fmt.Fprintf(out, "built_in: %t\n", p.BuiltIn)
	fmt.Fprintf(out, "created: %s\n", formatCreated(p))
}

func formatCreated(p protocol.Protocol) string {
	if p.CreatedAt.IsZero() {
		return "-"
	}
	return p.CreatedAt.UTC().Format(time.RFC3339)
}
