package main

import (
	"context"
	"fmt"
	"strings"

	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/readiness"

	"github.com/spf13/cobra"
)

var checkFlags struct {
	heal bool
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate every failure point once and print the readiness document",
	Long: `Run one readiness cycle and print the result.

The command exits 0 for READY, DEGRADED and BLOCKED alike; the verdict is in
the output. A non-zero exit means warden itself could not run.

Examples:
  # Print the readiness document as JSON
  warden check

  # Print a short summary
  warden check -o text

  # Also remediate detected issues and wait for the outcome
  warden check --heal`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkFlags.heal, "heal", false, "remediate detected issues before exiting")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, appOptions{healing: checkFlags.heal})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	a.start(ctx)
	defer a.close()

	cycle := a.monitor.RunCycle(ctx)
	resp := cycle.Response
	if cycle.Task != nil {
		if _, err := cycle.Task.Wait(ctx); err != nil {
			return cli.NewCommandError("check", err)
		}
		// Pick up the self-healing annotations written after remediation.
		a.monitor.Wait()
		if doc, err := a.store.Load(); err == nil {
			resp = readiness.Aggregate(doc.ResultsInOrder(a.registry.IDs())).Response()
		}
	}
	return printResult(cmd.OutOrStdout(), readinessView(resp))
}

// readinessView renders a readiness response for operators.
type readinessView readiness.Response

func (v readinessView) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "readiness: %s (%d critical, %d warning, %d checked)\n",
		v.Readiness, v.CriticalCount, v.WarningCount, v.TotalChecked)
	for _, fp := range v.FailurePoints {
		line := fmt.Sprintf("  %-7s %-26s", fp.Status, fp.ID)
		if fp.LastError != "" {
			line += " " + fp.LastError
		}
		if fp.SelfHealingAttempted {
			line += fmt.Sprintf(" [healed=%t]", fp.SelfHealingSuccess)
		}
		b.WriteString(strings.TrimRight(line, " ") + "\n")
	}
	return b.String()
}
