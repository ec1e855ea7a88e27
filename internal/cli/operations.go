package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newOperationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operations",
		Short: "List the operations of the spec",
		Args:  cobra.NoArgs,
		RunE:  runOperations,
	}

	cmd.Flags().Bool("json", false, "Print operations as JSON")

	return cmd
}

func runOperations(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}

	ops := e.client.ListOperations()

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(cmd, ops)
	}

	for _, op := range ops {
		line := strings.ToUpper(op.Method) + "\t" + op.Path
		if op.OperationID != "" {
			line += "\t" + op.OperationID
		}
		if op.Summary != "" {
			line += "\t" + op.Summary
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}

	return nil
}
