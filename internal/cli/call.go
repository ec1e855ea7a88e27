package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kolah/talkit/internal/loader"
	"github.com/kolah/talkit/tools"
	"github.com/spf13/cobra"
)

func newCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "call TOOL",
		Short:   "Call one tool against the API",
		Example: `  talkit call getPet --args '{"id": "7"}' -s api.json --base-url http://localhost:8080`,
		Args:    cobra.ExactArgs(1),
		RunE:    runCall,
	}

	flags := cmd.Flags()
	flags.String("args", "{}", "Tool arguments as a JSON object")
	flags.Bool("validate", true, "Validate the request against the spec before sending it")

	return cmd
}

func runCall(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}

	set, err := e.toolset()
	if err != nil {
		return err
	}

	tool, ok := set.Get(args[0])
	if !ok {
		return fmt.Errorf("unknown tool: %s", args[0])
	}

	baseURL := e.cfg.API.BaseURL
	if baseURL == "" {
		baseURL = e.client.ServerURL()
	}
	if baseURL == "" {
		return fmt.Errorf("no base URL: pass --base-url or add servers to the spec")
	}

	opts := []tools.InvokerOption{tools.WithLogger(e.logger)}

	if len(e.cfg.API.Credentials) > 0 {
		creds := make(map[string]tools.Credential, len(e.cfg.API.Credentials))
		for name, c := range e.cfg.API.Credentials {
			creds[name] = tools.Credential{
				Token:    os.ExpandEnv(c.Token),
				Username: os.ExpandEnv(c.Username),
				Password: os.ExpandEnv(c.Password),
			}
		}
		security, err := tools.SecurityFromDocument(e.client, creds)
		if err != nil {
			return fmt.Errorf("configuring credentials: %w", err)
		}
		opts = append(opts, tools.WithSecurity(security))
	}

	if validate, _ := cmd.Flags().GetBool("validate"); validate {
		data, err := os.ReadFile(e.cfg.Spec)
		if err != nil {
			return fmt.Errorf("reading spec file: %w", err)
		}
		validator, err := loader.NewRequestValidator(data)
		if err != nil {
			return fmt.Errorf("creating request validator: %w", err)
		}
		opts = append(opts, tools.WithValidator(validator))
	}

	invoker := tools.NewInvoker(tools.InvokerConfig{
		BaseURL: baseURL,
		Headers: e.cfg.API.Headers,
		Timeout: e.cfg.API.Timeout,
	}, opts...)

	rawArgs, _ := cmd.Flags().GetString("args")
	result, err := invoker.Call(cmd.Context(), tool, json.RawMessage(rawArgs))
	if err != nil {
		return err
	}

	cmd.PrintErrf("HTTP %d %s\n", result.StatusCode, result.ContentType)
	fmt.Fprintln(cmd.OutOrStdout(), string(result.Body))

	if result.StatusCode >= 400 {
		return fmt.Errorf("%s returned status %d", tool.Name, result.StatusCode)
	}
	return nil
}
