package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sophialabs/perfaudit/internal/domain/smoke"
	"github.com/sophialabs/perfaudit/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/perfaudit/internal/infrastructure/wiring"
)

var oneFlags struct {
	test string
}

var oneCmd = &cobra.Command{
	Use:   "one",
	Short: "Run a single smoke test in this process",
	Args:  cobra.NoArgs,
	RunE:  runOne,
}

func init() {
	oneCmd.Flags().StringVar(&oneFlags.test, "test", "", "test id (required)")
	_ = oneCmd.MarkFlagRequired("test")
}

func runOne(cmd *cobra.Command, _ []string) error {
	suite, err := filesystem.LoadSuite(rootFlags.suite)
	if err != nil {
		return err
	}
	test, err := suite.Find(oneFlags.test)
	if err != nil {
		return err
	}

	uc, err := wiring.NewEvaluateSmoke(smokeParams(newLogger()))
	if err != nil {
		return err
	}
	eval, err := uc.Execute(cmd.Context(), test)
	if err != nil {
		return err
	}

	printChecks(cmd.OutOrStdout(), eval.Checks)
	if !eval.Passed {
		return &exitError{code: 1}
	}
	return nil
}

func printChecks(w io.Writer, checks []smoke.Check) {
	for _, c := range checks {
		mark := "ok  "
		if !c.Passed {
			mark = "FAIL"
		}
		value, err := json.Marshal(c.Value)
		if err != nil {
			value = []byte(fmt.Sprint(c.Value))
		}
		fmt.Fprintf(w, "%s %s => %s [%s]\n", mark, c.Path, value, c.Assert)
		if c.Error != "" {
			fmt.Fprintf(w, "     %s\n", c.Error)
		}
	}
}
