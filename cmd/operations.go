package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spigell/hiring-pipeline/internal/operations"
)

var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "List the available operations",
	Run: func(cmd *cobra.Command, _ []string) {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tREQUIRED INPUTS\tDESCRIPTION")
		for _, d := range operations.All() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, strings.Join(d.Input.Required, ", "), d.Description)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(operationsCmd)
}
