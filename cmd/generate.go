package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// newGenerateCmd implements the `generate` subcommand (spec §6: code
// generation, explicitly out of core) — a thin text/template+sprig render,
// not an AI-driven generator.
func newGenerateCmd() *cobra.Command {
	var output string
	var setVars []string

	generateCmd := &cobra.Command{
		Use:   "generate <template>",
		Short: "Render a template file with sprig functions available",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			data := map[string]string{}
			for _, kv := range setVars {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("invalid --set value %q, expected NAME=VALUE", kv)
				}
				data[k] = v
			}

			if output == "" {
				rendered, err := theApp.codegen.RenderFile(args[0], data)
				if err != nil {
					return err
				}
				fmt.Fprint(os.Stdout, rendered)
				return nil
			}
			return theApp.codegen.RenderToFile(args[0], output, data)
		},
	}
	generateCmd.Flags().StringVar(&output, "output", "", "file to write the rendered template to (default: stdout)")
	generateCmd.Flags().StringArrayVar(&setVars, "set", nil, "template data as NAME=VALUE (repeatable)")
	return generateCmd
}
