package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/MrEthical07/authclient"
)

const (
	exitOK     = 0
	exitError  = 1
	exitUsage  = 2
	exitLogin  = 3
	usageTitle = `usage: authclient [global flags] <command> [flags]

commands:
  login     -username -password        log in and store the session
  signup    -username -email -password create an account
  me                                   show the current user
  profile                              show the profile with counters
  contacts                             list contacts
  posts     -user -limit -offset       list posts (default: your own)
  update    -username                  change the username
  avatar    -file                      upload an avatar image
  logout                               end the session
  loadtest  -requests -concurrency     N concurrent requests against expired tokens

global flags:`
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type globals struct {
	baseURL     string
	sessionFile string
	envFile     string
	verbose     bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var g globals
	fs := flag.NewFlagSet("authclient", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&g.baseURL, "base-url", "", "API base URL (overrides AUTHCLIENT_API_BASE_URL)")
	fs.StringVar(&g.sessionFile, "session-file", "", "session file when the memory backend is configured")
	fs.StringVar(&g.envFile, "env-file", "", "dotenv file to load before the environment")
	fs.BoolVar(&g.verbose, "v", false, "debug logging to stderr")
	fs.Usage = func() {
		fmt.Fprintln(stderr, usageTitle)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}

	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	name, rest := fs.Arg(0), fs.Args()[1:]
	if name == "loadtest" {
		return cmdLoadtest(ctx, rest, stdout, stderr, logger)
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", name)
		fs.Usage()
		return exitUsage
	}

	client, err := openClient(g, logger)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
	defer client.Close()

	out, err := cmd(ctx, client, rest, stderr)
	if errors.Is(err, flag.ErrHelp) || errors.Is(err, errUsage) {
		return exitUsage
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", authclient.ErrorMessage(err))
		logger.Debug("command failed", "command", name, "error", err)
		if authclient.NeedsLogin(err) {
			fmt.Fprintln(stderr, "run: authclient login")
			return exitLogin
		}
		return exitError
	}
	if out != nil {
		if err := printJSON(stdout, out); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitError
		}
	}
	return exitOK
}

func openClient(g globals, logger *slog.Logger) (*authclient.Client, error) {
	var files []string
	if g.envFile != "" {
		files = append(files, g.envFile)
	}
	cfg, err := authclient.LoadConfig(files...)
	if err != nil {
		return nil, err
	}
	if g.baseURL != "" {
		cfg.API.BaseURL = g.baseURL
	}

	// A process-local store would forget the login between invocations.
	if cfg.Storage.Backend == authclient.StorageMemory || g.sessionFile != "" {
		path := g.sessionFile
		if path == "" {
			path, err = defaultSessionFile()
			if err != nil {
				return nil, err
			}
		}
		cfg.Storage.Backend = authclient.StorageFile
		cfg.Storage.FilePath = path
	}

	return authclient.New().WithConfig(cfg).WithLogger(logger).Build()
}

func defaultSessionFile() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "authclient", "session.json"), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
