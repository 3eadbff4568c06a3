package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sophialabs/perfaudit/internal/app"
)

func main() {
	cfg := app.DefaultConfig()
	flag.StringVar(&cfg.RootDir, "root", cfg.RootDir, "root directory holding captures/")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.IntVar(&cfg.HistorySize, "history-size", cfg.HistorySize, "number of audit runs to keep")
	flag.IntVar(&cfg.CacheSize, "cache-size", cfg.CacheSize, "number of audit reports to cache")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flag.Float64Var(&cfg.Rate, "rate", cfg.Rate, "requests per second per client (0 disables rate limiting)")
	flag.IntVar(&cfg.Burst, "burst", cfg.Burst, "rate limiter burst size")
	flag.DurationVar(&cfg.WatcherDebounce, "watch-debounce", cfg.WatcherDebounce, "delay before reloading changed captures")
	flag.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "HTTP read timeout")
	flag.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "HTTP write timeout")
	flag.StringVar(&cfg.CalibrationFile, "calibration", cfg.CalibrationFile, "YAML file overriding metric scoring curves")
	flag.StringVar(&cfg.RankKey, "rank-key", cfg.RankKey, "trace event arg used to rank meaningful paint candidates")
	flag.Parse()

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}

	if err := a.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
