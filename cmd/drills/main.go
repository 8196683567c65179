package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/terra-clan/drills/internal/config"
	"github.com/terra-clan/drills/internal/editor"
	"github.com/terra-clan/drills/internal/prefs"
	"github.com/terra-clan/drills/internal/session"
	"github.com/terra-clan/drills/internal/shell"
	"github.com/terra-clan/drills/pkg/client"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cmd := "shell"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "shell":
		err = cmdShell()
	case "list":
		err = cmdList()
	case "health":
		err = cmdHealth()
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("drills %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Drills - coding exercise practice

Usage:
  drills [command]

Commands:
  shell           Start the interactive session (default)
  list            List exercises with attempts and passes
  health          Check the drills API
  help            Show this help message
  version         Show version information

Environment:
  DRILLS_API_URL          drills API base URL (default http://127.0.0.1:8000)
  DRILLS_API_KEY          API key sent as a bearer token
  DRILLS_CATEGORY         initial category (default DSA)
  DRILLS_SKELETON_POLICY  strip | verbatim
  DRILLS_REFRESH_POLICY   success | always
  DRILLS_WORKSPACE        directory holding the solution file (empty: in-memory)
  EDITOR                  command used by the edit command
  PREFS_BACKEND           file | redis | memory
  LOG_LEVEL               debug | info | warn | error`)
}

// setup loads configuration and installs the stderr logger
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)
	return cfg, nil
}

func newClient(cfg *config.Config) *client.Client {
	opts := []client.Option{client.WithTimeout(cfg.Client.Timeout)}
	if cfg.Client.APIKey != "" {
		opts = append(opts, client.WithAPIKey(cfg.Client.APIKey))
	}
	return client.NewClient(cfg.Client.BaseURL, opts...)
}

func newPrefsStore(ctx context.Context, cfg *config.Config) (prefs.Store, func(), error) {
	switch cfg.Prefs.Backend {
	case config.PrefsRedis:
		store, err := prefs.NewRedisStore(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	case config.PrefsMemory:
		return prefs.NewMemoryStore(), func() {}, nil
	default:
		return prefs.NewFileStore(cfg.Prefs.Path), func() {}, nil
	}
}

func cmdShell() error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newPrefsStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open preferences: %w", err)
	}
	defer closeStore()

	skeleton, err := session.ParseSkeletonPolicy(cfg.Session.SkeletonPolicy)
	if err != nil {
		return err
	}
	refresh, err := session.ParseRefreshPolicy(cfg.Session.RefreshPolicy)
	if err != nil {
		return err
	}

	sh := shell.New(os.Stdin, os.Stdout, cfg.Editor.Command)

	opts := session.DefaultOptions()
	opts.DefaultCategory = cfg.Session.DefaultCategory
	opts.Skeleton = skeleton
	opts.Refresh = refresh
	opts.Display = sh
	opts.Logger = slog.Default()

	newEditor := func(eo editor.Options) (session.Editor, error) {
		if cfg.Editor.Workspace == "" {
			return editor.NewBuffer(eo), nil
		}
		f, err := editor.NewFile(cfg.Editor.Workspace, eo)
		if err != nil {
			return nil, err
		}
		return f, nil
	}

	ctrl := session.NewController(newClient(cfg), newEditor, store, sh, opts)
	ctrl.Init(ctx)

	slog.Debug("session ready", "api", cfg.Client.BaseURL, "workspace", cfg.Editor.Workspace)

	if err := sh.Run(ctx, ctrl); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func cmdList() error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	exercises, err := newClient(cfg).ListExercises(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list exercises: %w", err)
	}

	topics := make([]string, 0, len(exercises))
	for topic := range exercises {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	for _, topic := range topics {
		fmt.Println(topic)
		for _, ex := range exercises[topic] {
			fmt.Printf("  %-32s %d/%d passed\n", ex.Name, ex.Passes, ex.Attempts)
		}
	}
	return nil
}

func cmdHealth() error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	if err := newClient(cfg).Health(context.Background()); err != nil {
		return fmt.Errorf("drills API at %s is unhealthy: %w", cfg.Client.BaseURL, err)
	}
	fmt.Printf("drills API at %s is healthy\n", cfg.Client.BaseURL)
	return nil
}
