package cli

import (
	"fmt"

	"github.com/kolah/talkit/openapi"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [path method]",
		Short: "Print the detail record of one operation",
		Example: "  talkit show /pets get -s api.json\n" +
			"  talkit show --id listPets -s api.json",
		RunE: runShow,
	}

	cmd.Flags().String("id", "", "Select the operation by operationId")

	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetString("id")
	switch {
	case id != "" && len(args) != 0:
		return fmt.Errorf("use either --id or path and method, not both")
	case id == "" && len(args) != 2:
		return fmt.Errorf("expected path and method, got %d argument(s)", len(args))
	}

	e, err := setup(cmd)
	if err != nil {
		return err
	}

	var detail *openapi.OperationDetail
	if id != "" {
		detail, err = e.client.OperationDetailsByID(id)
	} else {
		detail, err = e.client.OperationDetails(args[0], args[1])
	}
	if err != nil {
		return err
	}

	return printJSON(cmd, detail)
}
