package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowgent/flowgent/engine/attachment"
	"github.com/flowgent/flowgent/engine/core"
	"github.com/flowgent/flowgent/engine/flow"
	"github.com/flowgent/flowgent/engine/llm"
	"github.com/flowgent/flowgent/pkg/logger"
)

func runCmd() *cobra.Command {
	var (
		apiKey    string
		attach    []string
		uploadURL string
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "run <config> <prompt>",
		Short: "Execute a workflow document against an initial prompt",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logger.FromContext(ctx)
			configPath, prompt := args[0], args[1]

			cfg, err := flow.Load(configPath)
			if err != nil {
				return err
			}

			var invoker llm.Invoker
			if dryRun {
				invoker = llm.NewDryRunInvoker()
			} else {
				key, err := core.ResolveAPIKey(apiKey)
				if err != nil {
					return err
				}
				invoker = llm.NewLangChainInvoker(key)
			}

			opts := flow.RunOptions{APIKey: apiKey, Diagnostics: core.NewDiagnostics()}
			if dryRun && apiKey == "" {
				// Dry runs have no model calls to authenticate.
				opts.APIKey = "dry-run"
			}

			var uploader *attachment.Client
			if len(attach) > 0 {
				if uploadURL == "" {
					return errors.New("--attach requires --upload-url")
				}
				uploader = attachment.NewClient(uploadURL, apiKey)
				for _, path := range attach {
					staged, err := uploader.Create(ctx, path)
					if err != nil {
						return err
					}
					log.Info("Staged attachment", "file", staged.Name, "id", staged.ID)
					opts.Files = append(opts.Files, llm.FileRef{
						ID:   staged.ID,
						Name: staged.Name,
						MIME: staged.MIME,
					})
				}
				defer func() {
					for _, f := range opts.Files {
						if err := uploader.Delete(ctx, f.ID); err != nil {
							log.Warn("Failed to clean up staged attachment", "id", f.ID, "error", err)
						}
					}
				}()
			}

			engine := flow.NewEngine(invoker)
			output, err := engine.Run(ctx, cfg, prompt, opts)
			if err != nil {
				return err
			}
			for _, d := range opts.Diagnostics.Warnings() {
				log.Warn("Degraded during run", "component", d.Component, "detail", d.Message)
			}

			encoded, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "explicit API credential (overrides "+core.APIKeyEnv+")")
	cmd.Flags().StringArrayVar(&attach, "attach", nil, "file to stage and reference from the prompt (repeatable)")
	cmd.Flags().StringVar(&uploadURL, "upload-url", "", "base URL of the file staging service")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "run the flow with a deterministic echo model")
	return cmd
}
