package main

import (
	"fmt"
	"strings"
	"time"

	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/failpoint"
	"mercator-hq/warden/pkg/healing"

	"github.com/spf13/cobra"
)

var healCmd = &cobra.Command{
	Use:   "heal",
	Short: "Inspect and run self-healing",
	Long: `Inspect the healing ledger and run remediation on demand.

Subcommands:
  status  Show per-signal attempt counts and whether a new attempt is allowed
  run     Run one cycle and remediate the issues it finds`,
}

var healStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the healing gate for every remediable issue",
	Long: `Show, for every tracked signal and restartable check, how many attempts
the ledger holds inside the current window and whether the rate limit and
cooldown currently allow another one.

Examples:
  warden heal status
  warden heal status -o text`,
	RunE: runHealStatus,
}

var healRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one cycle and remediate detected issues",
	Long: `Run one readiness cycle, remediate the detected issues under the
healing policy and print the outcome of every issue.

Examples:
  warden heal run`,
	RunE: runHealRun,
}

func init() {
	rootCmd.AddCommand(healCmd)
	healCmd.AddCommand(healStatusCmd)
	healCmd.AddCommand(healRunCmd)
}

// gateStatus is the healing gate of one issue id.
type gateStatus struct {
	ID          string     `json:"id"`
	Allowed     bool       `json:"allowed"`
	Reason      string     `json:"reason,omitempty"`
	InWindow    int        `json:"in_window"`
	LastAttempt *time.Time `json:"last_attempt,omitempty"`
}

type healStatus struct {
	MaxPerHour int          `json:"max_per_hour"`
	Cooldown   string       `json:"cooldown"`
	Window     string       `json:"window"`
	Issues     []gateStatus `json:"issues"`
}

func (s healStatus) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "policy: %d per %s, cooldown %s\n", s.MaxPerHour, s.Window, s.Cooldown)
	for _, is := range s.Issues {
		state := "allowed"
		if !is.Allowed {
			state = "blocked (" + is.Reason + ")"
		}
		fmt.Fprintf(&b, "  %-26s %d in window, %s\n", is.ID, is.InWindow, state)
	}
	return b.String()
}

// remediableIDs lists the ledger keys warden can produce: every tracked
// signal plus the checks remediated by a restart.
func remediableIDs(cfg *config.Config) []string {
	ids := make([]string, 0, len(cfg.Signals.Tracked)+3)
	for _, spec := range cfg.Signals.Tracked {
		ids = append(ids, spec.Name)
	}
	return append(ids, failpoint.IDIngestionProcess, failpoint.IDCacheFreshness, failpoint.IDTradingProcess)
}

func runHealStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	gate := a.remediator.Gate()
	policy := gate.Policy()
	status := healStatus{
		MaxPerHour: policy.MaxPerHour,
		Cooldown:   policy.Cooldown.String(),
		Window:     policy.Window.String(),
	}
	for _, id := range remediableIDs(cfg) {
		d, err := gate.Decide(ctx, id)
		if err != nil {
			return cli.NewCommandError("heal status", err)
		}
		gs := gateStatus{ID: id, Allowed: d.Allowed, Reason: d.Reason, InWindow: d.InWindow}
		if !d.LastAttempt.IsZero() {
			last := d.LastAttempt
			gs.LastAttempt = &last
		}
		status.Issues = append(status.Issues, gs)
	}
	return printResult(cmd.OutOrStdout(), status)
}

type healRun struct {
	CycleID   string              `json:"cycle_id"`
	Readiness string              `json:"readiness"`
	Result    healing.CycleResult `json:"result"`
}

func (r healRun) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cycle %s: %s, %d healed, %d failed, %d skipped\n",
		r.CycleID, r.Readiness, r.Result.Healed, r.Result.Failed, r.Result.Skipped)
	for _, o := range r.Result.Outcomes {
		line := fmt.Sprintf("  %-26s %s", o.Issue.ID, o.Outcome)
		if o.Attempt != nil && o.Attempt.Error != "" {
			line += ": " + o.Attempt.Error
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func runHealRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !config.BoolValue(cfg.Healing.Enabled, config.DefaultHealingEnabled) {
		return cli.NewConfigError("healing.enabled", "healing is disabled")
	}
	a, err := newApp(cfg, appOptions{healing: true})
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a.start(ctx)
	defer a.close()

	cycle := a.monitor.RunCycle(ctx)
	out := healRun{CycleID: cycle.ID, Readiness: string(cycle.Response.Readiness)}
	if cycle.Task != nil {
		res, err := cycle.Task.Wait(ctx)
		if err != nil {
			return cli.NewCommandError("heal run", err)
		}
		out.Result = res
	}
	return printResult(cmd.OutOrStdout(), out)
}
