package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/streetvisit/carbon-recycling-platform/internal/config"
	"github.com/streetvisit/carbon-recycling-platform/internal/sync"
)

var (
	syncConnectorIDs []string
	syncForce        bool
)

var syncCmd = &cobra.Command{
	Use:         "sync",
	Short:       "Fetch activity data once from every enabled connector and print the emissions summary.",
	Args:        cobra.NoArgs,
	Annotations: structuredLogAnnotation(),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := sync.TriggerRequest{ConnectorIDs: syncConnectorIDs, Force: syncForce}
		return runSync(cmd.Context(), req, cmd.OutOrStdout())
	},
}

func init() {
	syncCmd.Flags().StringSliceVar(&syncConnectorIDs, "connector", nil, "limit the run to these connector ids (repeatable)")
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "run connectors that are in failure backoff")
}

func runSync(parent context.Context, req sync.TriggerRequest, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := parent
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := buildApp(ctx, cfg, slog.Default())
	if err != nil {
		return commandError(err)
	}
	summary, err := runBatch(ctx, a.newRunner(), req, out)
	if err != nil {
		return commandError(err)
	}
	if len(summary.Errors) > 0 {
		errs := make([]error, 0, len(summary.Errors))
		for _, msg := range summary.Errors {
			errs = append(errs, errors.New(msg))
		}
		return commandError(errors.Join(errs...))
	}
	return nil
}

// runBatch runs one calculation and writes its summary as JSON to out.
// Having no connectors configured is not an error.
func runBatch(ctx context.Context, runner sync.Runner, req sync.TriggerRequest, out io.Writer) (sync.Summary, error) {
	summary, err := runner.RunOnce(req.Context(ctx))
	if err != nil && !errors.Is(err, sync.ErrNoConnectors) && !errors.Is(err, sync.ErrNoConnectorsDue) {
		return summary, err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return summary, err
	}
	return summary, nil
}
