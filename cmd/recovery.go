package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

// newRecoveryCmd exposes the Recovery History (spec §3/§5) for inspection:
// which (error signature, strategy) pairs have previously succeeded, and how
// often.
func newRecoveryCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "recovery",
		Short: "Inspect recorded error-recovery history",
	}
	root.AddCommand(newRecoveryHistoryCmd())
	return root
}

func newRecoveryHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List learned (error signature, strategy) successes",
		RunE: func(c *cobra.Command, args []string) error {
			records := theApp.history.Records()
			sort.Slice(records, func(i, j int) bool {
				if records[i].ErrorSignature != records[j].ErrorSignature {
					return records[i].ErrorSignature < records[j].ErrorSignature
				}
				return records[i].StrategyCommand < records[j].StrategyCommand
			})

			if len(records) == 0 {
				fmt.Fprintln(os.Stdout, "no recovery history recorded yet")
				return nil
			}

			for _, r := range records {
				fmt.Fprintf(os.Stdout, "%s  [%s]  %s  (succeeded %d time(s), last %s)\n",
					r.ErrorSignature, r.StrategyKind, r.StrategyCommand, r.SuccessCount,
					r.LastSuccess.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}
