package cli

import "github.com/spf13/cobra"

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "resolve REF",
		Short:   "Print the node a local reference points to",
		Example: "  talkit resolve '#/components/schemas/Pet' -s api.json",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}

			node, err := e.client.ResolveRef(args[0])
			if err != nil {
				return err
			}

			return printJSON(cmd, node)
		},
	}
}
