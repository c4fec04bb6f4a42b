package main

import (
	"fmt"
	"io"
	"os"
)

const cliBanner = "veil CLI (veilctl)"

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}
	if len(args) == 0 {
		c.usage()
		return 2
	}

	switch args[0] {
	case "derive":
		return c.runDerive(args[1:])
	case "encode":
		return c.runEncode(args[1:])
	case "decode":
		return c.runDecode(args[1:])
	case "protocol":
		return c.runProtocol(args[1:])
	case "ops":
		return c.runOps(args[1:])
	case "pipeline":
		return c.runPipeline(args[1:])
	case "config":
		return c.runConfig(args[1:])
	case "version", "--version", "-version":
		fmt.Fprintln(stdout, version)
		return 0
	case "help", "-h", "--help":
		c.usage()
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[0])
		c.usage()
		return 2
	}
}

func (c *cli) usage() {
	fmt.Fprintln(c.stderr, cliBanner)
	fmt.Fprintln(c.stderr)
	fmt.Fprintln(c.stderr, "usage: veilctl <command> [flags] [text]")
	fmt.Fprintln(c.stderr)
	fmt.Fprintln(c.stderr, "commands:")
	fmt.Fprintln(c.stderr, "  derive <id>                 print the substitution table for a protocol")
	fmt.Fprintln(c.stderr, "  encode [text]               obfuscate text (reads stdin when no text is given)")
	fmt.Fprintln(c.stderr, "  decode [text]               recover obfuscated text")
	fmt.Fprintln(c.stderr, "  protocol new|sync|list|show|delete|rate")
	fmt.Fprintln(c.stderr, "  ops                         list registered operations")
	fmt.Fprintln(c.stderr, "  pipeline run                run an operation pipeline from a YAML file")
	fmt.Fprintln(c.stderr, "  config print                show the resolved configuration")
	fmt.Fprintln(c.stderr, "  version")
}
