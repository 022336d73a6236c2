package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	lua "github.com/yuin/gopher-lua"

	"github.com/haivivi/luasched/cmd/luasched/internal/config"
	"github.com/haivivi/luasched/pkg/kv"
	"github.com/haivivi/luasched/pkg/luasched"
)

const shutdownTimeout = 5 * time.Second

var runFlags struct {
	workers         int
	blockingWorkers int
	spawnBudget     int
	kvDir           string
}

var runCmd = &cobra.Command{
	Use:   "run <script.lua> [-- args...]",
	Short: "Run a Lua script on the scheduler",
	Long: `Run a Lua script as the main thread of a new scheduler.

The process exits with the code passed to set_exit_code. Without one it
exits 0, or 1 when the main thread raised an error.

Arguments after the script are available to it as the global table arg.

On exit, background tasks such as kv operations are cancelled and given a
few seconds to return before the kv store is closed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScript,
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runFlags.workers, "workers", 0, "background worker pool size (default from config)")
	f.IntVar(&runFlags.blockingWorkers, "blocking-workers", 0, "blocking pool size (default from config)")
	f.IntVar(&runFlags.spawnBudget, "spawn-budget", 0, "spawn-queue resumptions per tick, negative for unbounded")
	f.StringVar(&runFlags.kvDir, "kv-dir", "", "persist kv data with badger in this directory")
	rootCmd.AddCommand(runCmd)
}

func runScript(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)
	logger := cfg.Log.Logger(cmd.ErrOrStderr(), IsVerbose())

	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	store, err := openStore(cfg.KV, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	rt := luasched.New(nil,
		luasched.WithConfig(cfg.Scheduler),
		luasched.WithLogger(logger),
		luasched.WithStore(store),
	)
	// Runs before store.Close so blocking kv tasks finish first.
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := rt.Shutdown(ctx); err != nil {
			logger.Warn("tasks still running at exit", "error", err)
		}
	}()
	rt.RegisterBuiltins()

	argTable := rt.L.NewTable()
	argTable.RawSetInt(0, lua.LString(path))
	for i, a := range args[1:] {
		argTable.RawSetInt(i+1, lua.LString(a))
	}
	rt.L.SetGlobal("arg", argTable)

	id, err := rt.SpawnThread(luasched.Chunk{Name: path, Source: string(src)})
	if err != nil {
		return err
	}
	rt.TrackThread(id)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Debug("running script", "path", path, "thread", id.String())
	code, err := rt.Run(ctx)
	if err != nil {
		return err
	}

	if _, set := rt.ExitCode(); !set {
		if r, ok := rt.ThreadResult(id); ok && r.Err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", r.Err)
			code = luasched.ExitFailure
		}
	}
	if code != luasched.ExitSuccess {
		return &ExitError{Code: int(code)}
	}
	return nil
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("workers") {
		cfg.Scheduler.Workers = runFlags.workers
	}
	if f.Changed("blocking-workers") {
		cfg.Scheduler.BlockingWorkers = runFlags.blockingWorkers
	}
	if f.Changed("spawn-budget") {
		cfg.Scheduler.SpawnBudget = runFlags.spawnBudget
	}
	if f.Changed("kv-dir") {
		cfg.KV.Dir = runFlags.kvDir
	}
}

func openStore(cfg config.KV, logger *slog.Logger) (kv.Store, error) {
	if cfg.Dir == "" {
		return kv.NewMemory(), nil
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create kv dir: %w", err)
	}
	return kv.NewBadger(kv.BadgerOptions{Dir: cfg.Dir, Logger: logger})
}
