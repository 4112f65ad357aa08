// Command videoqa processes a video and answers questions about it from the terminal.
//
// Usage:
//
//	videoqa [flags] ingest <videoID>
//	videoqa [flags] ask <videoID> <question>
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"videoqa/internal/app"
	"videoqa/internal/config"
	"videoqa/internal/rag"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage:\n  %[1]s [flags] ingest <videoID>\n  %[1]s [flags] ask <videoID> <question>\n\nFlags:\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	pretty := flag.Bool("pretty", false, "indent JSON output")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Logs go to stderr so stdout stays parseable.
	slog.SetDefault(app.NewLogger(cfg, os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		_ = a.Close()
	}()

	var out any
	switch args[0] {
	case "ingest":
		out, err = a.Pipeline.Ingest(ctx, args[1])
	case "ask":
		if len(args) < 3 {
			usage()
			os.Exit(2)
		}
		out, err = a.Engine.Ask(ctx, rag.AskRequest{
			VideoID:  args[1],
			Question: strings.Join(args[2:], " "),
		})
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", args[0], err)
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}
}
