package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/flowllm/internal/app"
	"github.com/markdave123-py/flowllm/internal/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "flowllm",
		Short:        "Ingest documents into a vector store",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newIngestCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, if configured, the background queue workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			application, err := app.NewApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("startup failed: %w", err)
			}
			defer application.Close()

			slog.Info("flowllm is running")
			return application.Serve(cmd.Context())
		},
	}
}

func newIngestCmd() *cobra.Command {
	var key, user string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest a single object from the document bucket",
		Long: `Downloads the object stored under --key, extracts and embeds its content,
and upserts the resulting vectors into the namespace given by --user.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			application, err := app.NewApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("startup failed: %w", err)
			}
			defer application.Close()

			out, err := application.Processor.ProcessObject(cmd.Context(), key, user)
			if err != nil {
				return err
			}
			if out.Skipped {
				cmd.Printf("Skipped %s: unsupported file type.\n", key)
				return nil
			}
			cmd.Printf("Ingested %s: %d records, %d images uploaded.\n", out.DocumentID, out.Records, out.Uploaded)
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "object key in the document bucket")
	cmd.Flags().StringVar(&user, "user", "", "owner namespace for the vectors")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// loadConfig reads the environment and installs the process-wide logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	return cfg, nil
}
