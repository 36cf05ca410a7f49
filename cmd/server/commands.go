package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phrazzld/imagebatch/internal/platform/sqldb"
	"github.com/phrazzld/imagebatch/internal/platform/taskapi"
	"github.com/phrazzld/imagebatch/internal/service"
	"github.com/phrazzld/imagebatch/internal/sheet"
)

var errInputRequired = errors.New("--input is required")

// migrateCommands lists the goose commands accepted by migrate.
var migrateCommands = []string{"up", "down", "status", "version", "reset"}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signalContext(cmd.Context())
			defer stop()

			app, err := newApplication(runCtx, ctx.config, ctx.logger)
			if err != nil {
				return err
			}
			defer app.cleanup()

			if err := app.start(); err != nil {
				return err
			}
			return app.startHTTPServer(runCtx, app.setupRouter())
		},
	}
}

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version|reset]",
		Short:     "Run database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: migrateCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}

			db, dialect, err := sqldb.Open(cmd.Context(), ctx.config.Database, ctx.logger)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := sqldb.Migrate(cmd.Context(), db, dialect, command, ctx.logger); err != nil {
				return fmt.Errorf("migration %s failed: %w", command, err)
			}
			return nil
		},
	}
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		input    string
		output   string
		fileID   string
		jsonFlag bool
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process the rows of a spreadsheet and report the image found for each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return errInputRequired
			}

			runCtx, stop := signalContext(cmd.Context())
			defer stop()

			items, err := sheet.ReadItems(input, fileID)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", input, err)
			}
			fileID, items, err = service.PrepareItems(fileID, items)
			if err != nil {
				return err
			}

			app, err := newApplication(runCtx, ctx.config, ctx.logger)
			if err != nil {
				return err
			}
			defer app.cleanup()
			app.workers.Start()

			ctx.logger.Info("processing spreadsheet", "input", input, "file_id", fileID, "rows", len(items))
			results := app.batches.ProcessBatch(runCtx, items)

			if output != "" {
				if err := sheet.WriteResults(output, results); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
			}

			out := cmd.OutOrStdout()
			if jsonFlag || !isTerminal(out) {
				return writeJSON(cmd, results)
			}
			fmt.Fprintln(out, renderResults(results, true))
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Spreadsheet with brand, search and row columns")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the results to this spreadsheet")
	cmd.Flags().StringVar(&fileID, "file-id", "", "File id stamped on every row (generated when empty)")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the results as JSON")

	return cmd
}

func newPollCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "poll <task-id>",
		Short: "Poll a remote task until it completes, fails or times out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signalContext(cmd.Context())
			defer stop()

			client, err := taskapi.NewClient(taskapi.ConfigFrom(ctx.config.TaskAPI), ctx.logger)
			if err != nil {
				return fmt.Errorf("failed to create task API client: %w", err)
			}

			status, err := client.PollTaskStatus(runCtx, args[0])
			if status != nil {
				if werr := writeJSON(cmd, status.Raw); werr != nil {
					return werr
				}
			}
			return err
		},
	}
}
