// Command eggholder drives the colony against a benchmark objective and
// reports the best point found. Tuning knobs come from an optional TOML file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/hiveopt/abc"
	"github.com/hiveopt/abc/bench"
	"github.com/hiveopt/abc/metrics"
)

// Config holds the full configuration for a benchmark run.
type Config struct {
	Function  string `toml:"function"`
	Workers   int    `toml:"workers"`
	Observers int    `toml:"observers"`
	Retries   int    `toml:"retries"`
	Rounds    int    `toml:"rounds"`
	Threads   int    `toml:"threads"` // 0 means one per CPU
	Seed      int64  `toml:"seed"`
	Stream    bool   `toml:"stream"`
	Verbose   bool   `toml:"verbose"`
}

func defaultConfig() Config {
	return Config{
		Function:  "Eggholder",
		Workers:   20,
		Observers: 20,
		Retries:   50,
		Rounds:    2000,
		Seed:      time.Now().UnixNano(),
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("loading %s: %w", path, err)
	}
	return cfg, nil
}

func pickFunc(name string) (bench.Func, bool) {
	for _, fn := range bench.AllFuncs {
		if strings.EqualFold(fn.Name(), name) {
			return fn, true
		}
	}
	return nil, false
}

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           log.InfoLevel,
	})

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal("config", "error", err)
	}
	if cfg.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	fn, ok := pickFunc(cfg.Function)
	if !ok {
		logger.Fatal("unknown benchmark function", "function", cfg.Function)
	}

	provider := metrics.NewBasicProvider()
	hive, err := abc.New[[]float64](
		bench.NewExplorer(fn, cfg.Seed),
		cfg.Workers, cfg.Observers, cfg.Retries,
		abc.WithSeed(cfg.Seed),
		abc.WithScaling(abc.Rank()),
		abc.WithLogger(slog.New(logger)),
		abc.WithMetrics(provider),
		threadsOption(cfg.Threads),
	)
	if err != nil {
		logger.Fatal("configuring hive", "error", err)
	}

	logger.Info("activating swarm",
		"function", fn.Name(),
		"workers", cfg.Workers,
		"observers", cfg.Observers,
		"retries", cfg.Retries)

	swarm, err := hive.Swarm()
	if err != nil {
		logger.Fatal("activating swarm", "error", err)
	}
	defer swarm.Close()

	start := time.Now()
	var best abc.Candidate[[]float64]
	if cfg.Stream {
		best, err = runStreaming(swarm, cfg, logger)
	} else {
		best, err = swarm.RunForRounds(context.Background(), cfg.Rounds)
	}
	if err != nil {
		logger.Fatal("run", "error", err)
	}

	tokens := provider.Counter("abc.tokens").(*metrics.BasicCounter).Snapshot()
	logger.Info("run complete",
		"elapsed", time.Since(start).Round(time.Millisecond),
		"tokens", tokens,
		"objective", -best.Fitness,
		"optimum", fn.Optimum())
	fmt.Printf("best point: %v\n", best.Solution)
	fmt.Printf("best value: %v (optimum %v)\n", -best.Fitness, fn.Optimum())
}

// runStreaming exercises the background mode: improvements are logged as they
// arrive and the run is stopped once the round budget is spent.
func runStreaming(swarm *abc.Swarm[[]float64], cfg Config, logger *log.Logger) (abc.Candidate[[]float64], error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	improvements, err := swarm.Stream(ctx)
	if err != nil {
		return abc.Candidate[[]float64]{}, err
	}

	go func() {
		for {
			time.Sleep(50 * time.Millisecond)
			round, ok := swarm.Round()
			if !ok {
				return
			}
			if round >= cfg.Rounds {
				swarm.Stop()
				return
			}
		}
	}()

	for c := range improvements {
		logger.Info("improved", "objective", -c.Fitness)
	}
	if err := swarm.Err(); err != nil {
		return abc.Candidate[[]float64]{}, err
	}
	return swarm.Best(), nil
}

func threadsOption(threads int) abc.Option {
	if threads <= 0 {
		return nil // engine default: one per CPU
	}
	return abc.WithThreads(threads)
}
