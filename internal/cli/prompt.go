package cli

import (
	"fmt"

	"github.com/kolah/talkit/internal/prompt"
	"github.com/spf13/cobra"
)

func newPromptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompt",
		Short: "Print the system prompt that introduces the API and its tools",
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

			engine, err := prompt.NewEngine(e.cfg.Templates.Dir)
			if err != nil {
				return err
			}

			out, err := engine.Render(e.client, set, e.cfg.API.BaseURL)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
