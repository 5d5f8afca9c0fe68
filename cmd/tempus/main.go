package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/alexanderramin/tempus/internal/backend"
	"github.com/alexanderramin/tempus/internal/cli"
	"github.com/alexanderramin/tempus/internal/reconcile"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Determine DB path: env var or default ~/.tempus/tempus.db
	dbPath := os.Getenv("TEMPUS_DB")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("finding home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".tempus", "tempus.db")
	}

	local, err := backend.OpenLocal(context.Background(), dbPath)
	if err != nil {
		return fmt.Errorf("opening backend: %w", err)
	}
	defer local.Close()

	opts := []reconcile.Option{}
	if ms := os.Getenv("TEMPUS_TICK_MS"); ms != "" {
		n, err := strconv.Atoi(ms)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid TEMPUS_TICK_MS %q", ms)
		}
		opts = append(opts, reconcile.WithTickInterval(time.Duration(n)*time.Millisecond))
	}
	if os.Getenv("TEMPUS_DEBUG") != "" {
		opts = append(opts, reconcile.WithObserver(reconcile.NewLogObserver(os.Stderr)))
	}

	app := &cli.App{
		Backend:    local,
		Controller: reconcile.New(local, opts...),
		Use24h:     os.Getenv("TEMPUS_12H") == "",
	}

	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	rootCmd := cli.NewRootCmd(app)
	return rootCmd.Execute()
}
