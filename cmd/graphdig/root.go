package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/graphdig"
	"github.com/hupe1980/graphdig/codec"
	"github.com/hupe1980/graphdig/match"
	"github.com/hupe1980/graphdig/stream"
)

type rootOpts struct {
	logLevel  string
	logFormat string
	rootName  string
	rules     string
	compress  string
	codec     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOpts{}
	cmd := &cobra.Command{
		Use:          "graphdig",
		Short:        "search JSON and YAML documents for keys and values",
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	pf.StringVar(&opts.rootName, "root-name", "root", "name of the document root in paths")
	pf.StringVar(&opts.rules, "rules", "none", "exclusion rules: none or browser")
	pf.StringVar(&opts.compress, "compress", "", "write length-prefixed frames instead of JSON lines: none, lz4 or zstd")
	pf.StringVar(&opts.codec, "codec", "go-json", "output codec: go-json or json")

	cmd.AddCommand(newSearchCmd(opts), newExploreCmd(opts), newExpandCmd(opts))
	return cmd
}

func (o *rootOpts) logger() (*graphdig.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	switch o.logFormat {
	case "text":
		return graphdig.NewTextLogger(level), nil
	case "json":
		return graphdig.NewJSONLogger(level), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", o.logFormat)
	}
}

func (o *rootOpts) digger(file string) (*graphdig.Digger, error) {
	doc, err := loadDocument(file)
	if err != nil {
		return nil, err
	}
	logger, err := o.logger()
	if err != nil {
		return nil, err
	}

	var rules match.Rules
	switch o.rules {
	case "", "none":
		rules = match.DefaultRules()
	case "browser":
		rules = match.BrowserRules()
	default:
		return nil, fmt.Errorf("unknown rule set %q", o.rules)
	}

	return graphdig.New(doc, nil,
		graphdig.WithLogger(logger),
		graphdig.WithRootName(o.rootName),
		graphdig.WithRules(rules),
	), nil
}

// writer returns the record sink selected by --compress and --codec.
func (o *rootOpts) writer(w io.Writer) (func(v any) error, error) {
	c, ok := codec.ByName(o.codec)
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", o.codec)
	}
	if o.compress == "" {
		var buf []byte
		return func(v any) error {
			var err error
			if buf, err = codec.AppendLine(c, buf[:0], v); err != nil {
				return err
			}
			_, err = w.Write(buf)
			return err
		}, nil
	}

	mode, err := stream.ParseCompression(o.compress)
	if err != nil {
		return nil, err
	}
	return stream.NewEncoder(w, c, mode).Encode, nil
}

func loadDocument(file string) (any, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	var doc any
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
	default:
		if err := codec.Default.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
	}
	return doc, nil
}
