package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/RowanDark/veil/internal/cipher"
)

func (c *cli) runOps(args []string) int {
	fs := flag.NewFlagSet("ops", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	opType := fs.String("type", "", "only list operations of this type (encode or decode)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var ops []cipher.Operation
	if *opType == "" {
		ops = cipher.ListOperations()
	} else {
		ops = cipher.ListOperationsByType(cipher.OperationType(strings.ToLower(*opType)))
	}

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tREVERSE\tDESCRIPTION")
	for _, op := range ops {
		reverse := "-"
		if rev, ok := op.Reverse(); ok {
			reverse = rev.Name()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", op.Name(), op.Type(), reverse, op.Description())
	}
	if err := tw.Flush(); err != nil {
		return c.fail(err)
	}
	return 0
}

func (c *cli) runPipeline(args []string) int {
	if len(args) == 0 || args[0] != "run" {
		fmt.Fprintln(c.stderr, "usage: veilctl pipeline run --file <pipeline.yaml> [--reverse] [text]")
		return 2
	}

	fs := flag.NewFlagSet("pipeline run", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	file := fs.String("file", "", "YAML file describing the pipeline")
	reverse := fs.Bool("reverse", false, "run the inverse pipeline")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if *file == "" {
		fmt.Fprintln(c.stderr, "--file is required")
		return 2
	}

	pipeline, err := loadPipeline(*file)
	if err != nil {
		return c.fail(err)
	}
	if *reverse {
		if pipeline, err = pipeline.Reverse(); err != nil {
			return c.fail(err)
		}
	}

	text, err := c.readText(fs.Args())
	if err != nil {
		return c.fail(err)
	}
	out, err := pipeline.Execute(context.Background(), []byte(text))
	if err != nil {
		return c.fail(err)
	}
	fmt.Fprintln(c.stdout, string(out))
	return 0
}

func loadPipeline(path string) (*cipher.Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline: %w", err)
	}
	var p cipher.Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse pipeline %s: %w", path, err)
	}
	if len(p.Operations) == 0 {
		return nil, fmt.Errorf("pipeline %s has no operations", path)
	}
	return &p, nil
}
