package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Azure/cmdpilot/internal/rollbacklog"
)

// newRollbackCmd implements the `rollback` subcommand group (spec §6):
// list/last/transaction/operation inspection of the Rollback Log.
func newRollbackCmd() *cobra.Command {
	rollbackCmd := &cobra.Command{
		Use:   "rollback",
		Short: "Inspect rollback transactions",
	}

	rollbackCmd.AddCommand(
		newRollbackListCmd(),
		newRollbackLastCmd(),
		newRollbackTransactionCmd(),
	)
	return rollbackCmd
}

func newRollbackListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known transactions, oldest first",
		RunE: func(c *cobra.Command, args []string) error {
			names, err := theApp.rollback.List()
			if err != nil {
				return err
			}
			sort.Strings(names)
			for _, n := range names {
				fmt.Fprintln(os.Stdout, n)
			}
			return nil
		},
	}
}

func newRollbackLastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "last",
		Short: "Show the most recently started transaction",
		RunE: func(c *cobra.Command, args []string) error {
			tx, err := theApp.rollback.Last()
			if err != nil {
				return err
			}
			if tx == nil {
				fmt.Fprintln(os.Stdout, "no transactions recorded")
				return nil
			}
			printTransaction(tx)
			return nil
		},
	}
}

func newRollbackTransactionCmd() *cobra.Command {
	txCmd := &cobra.Command{
		Use:   "transaction <dir>",
		Short: "Show one transaction by its directory name",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			tx, err := rollbacklog.Load(filepath.Join(theApp.cfg.StateDir, "rollback"), args[0])
			if err != nil {
				return fmt.Errorf("loading transaction %q: %w", args[0], err)
			}
			printTransaction(tx)
			return nil
		},
	}
	txCmd.AddCommand(newRollbackOperationCmd())
	return txCmd
}

func newRollbackOperationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "operation <dir> <operation-id>",
		Short: "Show one operation record within a transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			tx, err := rollbacklog.Load(filepath.Join(theApp.cfg.StateDir, "rollback"), args[0])
			if err != nil {
				return fmt.Errorf("loading transaction %q: %w", args[0], err)
			}
			for _, op := range tx.Operations {
				if op.ID == args[1] {
					fmt.Fprintf(os.Stdout, "%s %s %s\n", op.ID, op.Kind, op.Path)
					return nil
				}
			}
			return fmt.Errorf("operation %q not found in transaction %q", args[1], args[0])
		},
	}
}

func printTransaction(tx *rollbacklog.Transaction) {
	fmt.Fprintf(os.Stdout, "id: %s\nstatus: %s\ndescription: %s\noperations: %d\n",
		tx.ID, tx.Status, tx.Description, len(tx.Operations))
}
