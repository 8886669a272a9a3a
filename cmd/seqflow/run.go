package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/baxromumarov/seqflow/query"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	Async   bool
	Timeout time.Duration
	Workers int
}

// runOutput is the JSON shape of a finished execution.
type runOutput struct {
	ID     string `json:"id"`
	Mode   string `json:"mode"`
	Items  []any  `json:"items,omitempty"`
	Scalar any    `json:"scalar,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <plan.yaml>",
		Short: "Execute a plan against the demo sources",
		Long: `Execute a YAML plan against the demo catalog and print the result.

By default the plan runs inline on the calling goroutine. With --async it
runs in the background: natively when every source is a sequence, or
offloaded onto a bounded worker scope when it reads a synchronous source.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, rootOpts, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Async, "async", false, "execute in the background")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "execution deadline")
	cmd.Flags().IntVar(&opts.Workers, "workers", 2, "max concurrent offloaded executions")

	return cmd
}

func runPlan(cmd *cobra.Command, rootOpts *RootOptions, opts *RunOptions, path string) error {
	if opts.Workers < 0 {
		return fmt.Errorf("invalid --workers %d: must be non-negative", opts.Workers)
	}
	plan, err := query.LoadPlan(path)
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, opts.Timeout)
	defer cancel()

	log := rootOpts.log()
	p := query.NewProvider(ctx, query.WithLogger(log), query.WithMaxConcurrent(opts.Workers))
	defer p.Close()
	registerDemoSources(p)

	var res query.Result
	if opts.Async {
		h, err := p.ExecuteAsync(ctx, plan)
		if err != nil {
			return err
		}
		if res, err = h.Wait(ctx); err != nil {
			return err
		}
	} else if res, err = p.Execute(ctx, plan); err != nil {
		return err
	}
	log.Debug("plan executed", "path", path, "exec_id", res.ID.String(), "mode", res.Mode.String())

	return writeResult(cmd.OutOrStdout(), rootOpts.Format, res)
}

func writeResult(w io.Writer, format string, res query.Result) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(runOutput{
			ID:     res.ID.String(),
			Mode:   res.Mode.String(),
			Items:  res.Items,
			Scalar: res.Scalar,
		})
	}

	if res.Scalar != nil {
		_, err := fmt.Fprintln(w, res.Scalar)
		return err
	}
	for _, item := range res.Items {
		if _, err := fmt.Fprintln(w, item); err != nil {
			return err
		}
	}
	return nil
}
