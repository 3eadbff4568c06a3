package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sophialabs/perfaudit/internal/domain/smoke"
	"github.com/sophialabs/perfaudit/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/perfaudit/internal/infrastructure/outbound/process"
	"github.com/sophialabs/perfaudit/internal/infrastructure/usecases"
	"github.com/sophialabs/perfaudit/internal/infrastructure/wiring"
)

var runFlags struct {
	parallel int
	timeout  time.Duration
	cooldown time.Duration
	serial   bool
	format   string
	template string
}

var runCmd = &cobra.Command{
	Use:   "run [ids...]",
	Short: "Run smoke tests, each in its own process",
	Long: "Runs the selected tests (all when no ids are given). Tests not marked serial\n" +
		"run concurrently first; serial tests follow one at a time in suite order.\n" +
		"Exits 0 only when every test passes.",
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runFlags.parallel, "parallel", 4, "maximum concurrent tests in the parallel batch")
	f.DurationVar(&runFlags.timeout, "timeout", 2*time.Minute, "wall-clock limit per test")
	f.DurationVar(&runFlags.cooldown, "cooldown", 0, "pause between serial tests")
	f.BoolVar(&runFlags.serial, "serial", false, "run every test serially")
	f.StringVar(&runFlags.format, "format", "text", "result format (text, compact)")
	f.StringVar(&runFlags.template, "template", "", "pongo2 template file for results; overrides --format")
}

func runRun(cmd *cobra.Command, ids []string) error {
	suite, err := filesystem.LoadSuite(rootFlags.suite)
	if err != nil {
		return err
	}
	launcher, err := process.Self()
	if err != nil {
		return err
	}

	logger := newLogger()
	params := smokeParams(logger)
	params.Launcher = launcher
	params.Format = runFlags.format
	params.TemplateFile = runFlags.template
	params.Out = cmd.OutOrStdout()
	params.Options = usecases.SmokeOptions{
		Args:        childArgs(),
		Parallelism: runFlags.parallel,
		Timeout:     runFlags.timeout,
		Cooldown:    runFlags.cooldown,
		ForceSerial: runFlags.serial,
	}
	uc, err := wiring.NewRunSmoke(params)
	if err != nil {
		return err
	}

	outcomes, err := uc.Execute(cmd.Context(), suite, ids)
	if err != nil {
		return err
	}

	passed := 0
	for _, o := range outcomes {
		if o.Passed {
			passed++
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d/%d passed\n", passed, len(outcomes))

	if code := smoke.ExitCode(outcomes); code != 0 {
		return &exitError{code: code}
	}
	return nil
}
