package main

import (
	"fmt"

	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/healing"

	"github.com/spf13/cobra"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Maintain the healing ledger",
}

var ledgerPruneFlags struct {
	days int
}

var ledgerPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete ledger attempts older than the retention period",
	Long: `Delete healing attempts older than healing.retention.days.

The retention may not be shorter than the healing window, otherwise the rate
limit would forget attempts it still has to count.

Examples:
  warden ledger prune
  warden ledger prune --days 14`,
	RunE: runLedgerPrune,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerPruneCmd)

	ledgerPruneCmd.Flags().IntVar(&ledgerPruneFlags.days, "days", 0, "override retention days")
}

type pruneResult struct {
	Deleted int64 `json:"deleted"`
	Days    int   `json:"retention_days"`
}

func (r pruneResult) Text() string {
	return fmt.Sprintf("deleted %d attempts older than %d days\n", r.Deleted, r.Days)
}

func runLedgerPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	days := cfg.Healing.Retention.Days
	if ledgerPruneFlags.days > 0 {
		days = ledgerPruneFlags.days
	}
	a, err := newApp(cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	pruner, err := healing.NewPruner(a.ledger, days, a.remediator.Gate().Policy(), a.metrics)
	if err != nil {
		return cli.NewConfigError("healing.retention.days", err.Error())
	}
	deleted, err := pruner.Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("ledger prune", err)
	}
	return printResult(cmd.OutOrStdout(), pruneResult{Deleted: deleted, Days: days})
}
