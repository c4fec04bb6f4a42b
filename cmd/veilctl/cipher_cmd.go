package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"sort"

	"github.com/RowanDark/veil/internal/service"
)

func (c *cli) runDerive(args []string) int {
	fs := flag.NewFlagSet("derive", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	cf := addCommonFlags(fs)
	asJSON := fs.Bool("json", false, "print the table as a JSON object")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "derive requires exactly one protocol id")
		return 2
	}

	b, _, closeFn, err := cf.open()
	if err != nil {
		return c.fail(err)
	}
	defer closeFn()

	table, err := b.DeriveMapping(context.Background(), fs.Arg(0))
	if err != nil {
		return c.fail(err)
	}

	if *asJSON {
		out := make(map[string]string, len(table))
		for k, v := range table {
			out[string(k)] = string(v)
		}
		enc := json.NewEncoder(c.stdout)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return c.fail(err)
		}
		return 0
	}

	for _, k := range table.Keys() {
		fmt.Fprintf(c.stdout, "%c -> %c\n", k, table[k])
	}
	collisions := table.Collisions()
	if len(collisions) > 0 {
		subs := make([]rune, 0, len(collisions))
		for v := range collisions {
			subs = append(subs, v)
		}
		sort.Slice(subs, func(i, j int) bool { return subs[i] < subs[j] })
		for _, v := range subs {
			fmt.Fprintf(c.stderr, "warning: %q share substitute %c; decoding yields %c\n", string(collisions[v]), v, collisions[v][0])
		}
	}
	return 0
}

func (c *cli) runEncode(args []string) int {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	cf := addCommonFlags(fs)
	id := fs.String("protocol", "", "protocol id (default: defaults.protocol_id)")
	noise := fs.Int("noise", 0, "noise level 0-2 (default: defaults.noise_level)")
	strip := fs.Bool("strip", false, "remove whitespace before encoding (default: defaults.strip_whitespace)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	text, err := c.readText(fs.Args())
	if err != nil {
		return c.fail(err)
	}

	b, _, closeFn, err := cf.open()
	if err != nil {
		return c.fail(err)
	}
	defer closeFn()

	res, err := b.Encode(context.Background(), service.EncodeRequest{
		ProtocolID:      *id,
		Text:            text,
		NoiseLevel:      optionalInt(fs, "noise", *noise),
		StripWhitespace: optionalBool(fs, "strip", *strip),
	})
	if err != nil {
		return c.fail(err)
	}
	if res.ProtocolCreated {
		fmt.Fprintf(c.stderr, "stored new protocol %s\n", res.ProtocolID)
	}
	fmt.Fprintln(c.stdout, res.Text)
	return 0
}

func (c *cli) runDecode(args []string) int {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	cf := addCommonFlags(fs)
	id := fs.String("protocol", "", "protocol id (default: defaults.protocol_id)")
	noise := fs.Int("noise", 0, "noise level 0-2 used when encoding (default: defaults.noise_level)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	text, err := c.readText(fs.Args())
	if err != nil {
		return c.fail(err)
	}

	b, _, closeFn, err := cf.open()
	if err != nil {
		return c.fail(err)
	}
	defer closeFn()

	res, err := b.Decode(context.Background(), service.DecodeRequest{
		ProtocolID: *id,
		Text:       text,
		NoiseLevel: optionalInt(fs, "noise", *noise),
	})
	if err != nil {
		return c.fail(err)
	}
	fmt.Fprintln(c.stdout, res.Text)
	return 0
}
