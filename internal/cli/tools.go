package cli

import "github.com/spf13/cobra"

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the operations as OpenAI function tool definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}

			set, err := e.toolset()
			if err != nil {
				return err
			}

			return printJSON(cmd, set.OpenAI())
		},
	}
}
