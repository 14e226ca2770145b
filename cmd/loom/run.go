package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loom/internal/driver"
	"loom/internal/emit"
	"loom/internal/manifest"
	"loom/internal/observ"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] manifest",
	Short: "Evaluate a program manifest on the host",
	Long:  "Run every program of a manifest immediately over host memory and print the results.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExecution,
}

func runExecution(cmd *cobra.Command, args []string) error {
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	if err := configureColor(cmd); err != nil {
		return err
	}

	timer := observ.NewTimer()
	loadPhase := timer.Begin("load")
	m, err := manifest.Load(args[0])
	if err != nil {
		return err
	}
	timer.End(loadPhase, fmt.Sprintf("%d programs", len(m.Programs)))

	evalPhase := timer.Begin("evaluate")
	evals, err := driver.EvaluateManifest(m)
	if err != nil {
		return err
	}
	timer.End(evalPhase, "")

	out := cmd.OutOrStdout()
	dumper := emit.NewHostContext(m.Module.Name)
	for _, ev := range evals {
		dumper.DebugDump(out, ev.Program, ev.Output)
	}
	if showTimings {
		fmt.Fprint(out, timer.Summary())
	}
	return nil
}
