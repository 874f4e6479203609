package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/illmade-knight/bikepark/app"
	"github.com/illmade-knight/bikepark/internal/clients"
	"github.com/illmade-knight/bikepark/internal/config"
	"github.com/illmade-knight/bikepark/pkg/locations"
	"github.com/rs/zerolog"
)

const usage = `usage: bikepark <command> [flags]

commands:
  serve                       run the HTTP server
  available                   list locations with free slots
  search <query>              search locations
  reserve <id>                reserve one slot on a location
  cancel <endereco> <numero>  release one slot at an address
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(ctx, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string, out io.Writer) error {
	switch command {
	case "serve":
		return serve(ctx, args)
	case "available", "search", "reserve", "cancel":
		return clientCommand(ctx, command, args, out)
	case "-h", "--help", "help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configDir := fs.String("config", ".", "directory holding an optional bikepark.env")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	logger.Info().Msg("Bikepark service initialized. Waiting for shutdown signal...")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Application stopped with error")
		return err
	}
	logger.Info().Msg("Shutdown complete.")
	return nil
}

func clientCommand(ctx context.Context, command string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	server := fs.String("server", envOr("BIKEPARK_URL", "http://localhost:8080"), "base URL of the bikepark server")
	verbose := fs.Bool("v", false, "log client activity to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := zerolog.Nop()
	if *verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	client := clients.NewLocationsClient(strings.TrimRight(*server, "/"), logger)
	rest := fs.Args()

	var (
		result any
		err    error
	)
	switch command {
	case "available":
		result, err = client.ListAvailable(ctx)
	case "search":
		if len(rest) == 0 {
			return errors.New("search needs a query")
		}
		result, err = client.Search(ctx, strings.Join(rest, " "))
	case "reserve":
		if len(rest) != 1 {
			return errors.New("reserve needs exactly one id")
		}
		var loc locations.Location
		loc, err = client.GetByID(ctx, rest[0])
		if err == nil {
			result, err = client.Update(ctx, loc)
		}
	case "cancel":
		if len(rest) != 2 {
			return errors.New("cancel needs an endereco and a numero")
		}
		result, err = client.Cancel(ctx, rest[0], rest[1])
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
