package cli

import (
	"encoding/json"
	"fmt"

	"github.com/kolah/talkit/internal/config"
	"github.com/kolah/talkit/internal/logging"
	"github.com/kolah/talkit/openapi"
	"github.com/kolah/talkit/tools"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "talkit",
		Short:   "talkit - expose an OpenAPI document to chat models as tools",
		Version: "1.0.0",

		SilenceUsage:  true,
		SilenceErrors: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	config.BindCommonFlags(root)

	root.AddCommand(
		newValidateCmd(),
		newOperationsCmd(),
		newShowCmd(),
		newResolveCmd(),
		newToolsCmd(),
		newPromptCmd(),
		newCallCmd(),
	)

	return root
}

// env is what every command needs after flags are parsed.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	client *openapi.Client
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	client, err := openapi.FromFile(cfg.Spec)
	if err != nil {
		return nil, fmt.Errorf("loading spec: %w", err)
	}
	logger.Debug("loaded spec", zap.String("path", cfg.Spec))

	return &env{cfg: cfg, logger: logger, client: client}, nil
}

func (e *env) toolset() (*tools.Toolset, error) {
	set, err := tools.Build(e.client, tools.Options{
		IncludeTags: e.cfg.Tools.IncludeTags,
		ExcludeTags: e.cfg.Tools.ExcludeTags,
		Prefix:      e.cfg.Tools.Prefix,
		Logger:      e.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building tools: %w", err)
	}
	return set, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
