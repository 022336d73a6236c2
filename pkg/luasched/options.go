package luasched

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/haivivi/luasched/pkg/kv"
)

// DefaultSpawnBudget is how many spawn-queue resumptions one tick may run
// before moving on to the defer queue.
const DefaultSpawnBudget = 10000

// DefaultSleepFloor is the shortest delay sleep will wait, in seconds.
const DefaultSleepFloor = 1.0 / 250

// Config holds the tunables of a Runtime. Zero values fall back to defaults,
// except SpawnBudget where a negative value means unbounded.
type Config struct {
	// Workers bounds concurrently running background tasks.
	Workers int `yaml:"workers"`

	// BlockingWorkers bounds concurrently running blocking tasks.
	BlockingWorkers int `yaml:"blocking_workers"`

	// SpawnBudget bounds spawn-queue resumptions per tick.
	SpawnBudget int `yaml:"spawn_budget"`

	// SleepFloor is the minimum sleep in seconds.
	SleepFloor float64 `yaml:"sleep_floor"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Workers:         runtime.NumCPU(),
		BlockingWorkers: DefaultBlockingWorkers,
		SpawnBudget:     DefaultSpawnBudget,
		SleepFloor:      DefaultSleepFloor,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.BlockingWorkers <= 0 {
		c.BlockingWorkers = d.BlockingWorkers
	}
	if c.SpawnBudget == 0 {
		c.SpawnBudget = d.SpawnBudget
	}
	if c.SleepFloor <= 0 {
		c.SleepFloor = d.SleepFloor
	}
	return c
}

func (c Config) sleepFloor() time.Duration {
	return time.Duration(c.SleepFloor * float64(time.Second))
}

// Option is a functional option for configuring Runtime.
type Option func(*Runtime)

// WithConfig replaces the whole configuration. Options after it still apply.
func WithConfig(cfg Config) Option {
	return func(rt *Runtime) {
		rt.cfg = cfg
	}
}

// WithWorkers sets the size of the background pool.
func WithWorkers(n int) Option {
	return func(rt *Runtime) {
		rt.cfg.Workers = n
	}
}

// WithBlockingWorkers sets the size of the blocking pool.
func WithBlockingWorkers(n int) Option {
	return func(rt *Runtime) {
		rt.cfg.BlockingWorkers = n
	}
}

// WithSpawnBudget sets the per-tick spawn budget. Negative means unbounded.
func WithSpawnBudget(n int) Option {
	return func(rt *Runtime) {
		rt.cfg.SpawnBudget = n
	}
}

// WithSleepFloor sets the minimum sleep.
func WithSleepFloor(d time.Duration) Option {
	return func(rt *Runtime) {
		rt.cfg.SleepFloor = d.Seconds()
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// WithErrorCallback sets the function called for every thread that raises
// an error. The default logs the error.
func WithErrorCallback(fn func(ThreadID, error)) Option {
	return func(rt *Runtime) {
		rt.onError = fn
	}
}

// WithStore sets the store behind the kv_get, kv_set and kv_del builtins.
func WithStore(s kv.Store) Option {
	return func(rt *Runtime) {
		rt.store = s
	}
}
