package app

import "time"

// Config holds all configurable parameters for the application.
type Config struct {
	RootDir     string
	Port        int
	HistorySize int
	CacheSize   int
	LogLevel    string

	RateLimiterTTL  time.Duration
	Rate            float64 // per-client requests per second; 0 disables limiting
	Burst           int
	WatcherDebounce time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	CalibrationFile string // "" = built-in curves
	RankKey         string // trace event arg used to rank paint candidates
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		RootDir:     "./testdata",
		Port:        8080,
		HistorySize: 200,
		CacheSize:   128,
		LogLevel:    "info",

		RateLimiterTTL:  10 * time.Minute,
		Rate:            50,
		Burst:           100,
		WatcherDebounce: 500 * time.Millisecond,

		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}
