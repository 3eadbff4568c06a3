package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sophialabs/perfaudit/internal/infrastructure/outbound/logging"
	"github.com/sophialabs/perfaudit/internal/infrastructure/ports"
	"github.com/sophialabs/perfaudit/internal/infrastructure/wiring"
)

var rootFlags struct {
	root        string
	suite       string
	calibration string
	rankKey     string
	logLevel    string
}

var rootCmd = &cobra.Command{
	Use:           "smokehouse",
	Short:         "Run perfaudit smoke tests against stored captures",
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.root, "root", "./testdata", "root directory holding captures/")
	f.StringVar(&rootFlags.suite, "suite", "./testdata/smoke/smoke.yaml", "smoke suite file")
	f.StringVar(&rootFlags.calibration, "calibration", "", "YAML file overriding metric scoring curves")
	f.StringVar(&rootFlags.rankKey, "rank-key", "", "trace event arg used to rank meaningful paint candidates")
	f.StringVar(&rootFlags.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(oneCmd)
}

// newLogger writes to stderr so stdout carries only results.
func newLogger() ports.Logger {
	return logging.NewText(os.Stderr, rootFlags.logLevel)
}

func smokeParams(logger ports.Logger) wiring.SmokeParams {
	return wiring.SmokeParams{
		RootDir:         rootFlags.root,
		CalibrationFile: rootFlags.calibration,
		RankKey:         rootFlags.rankKey,
		Logger:          logger,
	}
}

// childArgs are the arguments every child process is started with, before
// the test id is appended.
func childArgs() []string {
	args := []string{
		"one",
		"--root", rootFlags.root,
		"--suite", rootFlags.suite,
		"--log-level", rootFlags.logLevel,
	}
	if rootFlags.calibration != "" {
		args = append(args, "--calibration", rootFlags.calibration)
	}
	if rootFlags.rankKey != "" {
		args = append(args, "--rank-key", rootFlags.rankKey)
	}
	return args
}
