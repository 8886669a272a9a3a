package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/baxromumarov/seqflow"
	"github.com/baxromumarov/seqflow/query"
)

var demoSources = []string{"customers", "numbers", "orders"}

// demoCatalog answers validation lookups without building a provider.
type demoCatalog struct{}

func (demoCatalog) Has(name string) bool {
	return slices.Contains(demoSources, name)
}

func demoOrders() []query.Record {
	return []query.Record{
		{"id": 1, "region": "north", "total": 10.0, "customer": 1},
		{"id": 2, "region": "south", "total": 25.0, "customer": 2},
		{"id": 3, "region": "north", "total": 20.0, "customer": 1},
		{"id": 4, "region": "north", "total": 35.0, "customer": 4},
		{"id": 5, "region": "east", "total": 5.0, "customer": 2},
	}
}

// registerDemoSources installs the demo catalog: orders and numbers are
// sequences, customers is a synchronous lookup.
func registerDemoSources(p *query.Provider) {
	p.RegisterSequence("orders", query.Items(seqflow.FromSlice(demoOrders())))
	p.RegisterSequence("numbers", query.Items(seqflow.Range(1, 10)))
	p.RegisterFunc("customers", func(ctx context.Context) ([]any, error) {
		return []any{
			query.Record{"id": 1, "name": "Ann"},
			query.Record{"id": 2, "name": "Bob"},
			query.Record{"id": 4, "name": "Dora"},
		}, ctx.Err()
	})
}

// NewSourcesCommand creates the sources command.
func NewSourcesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the demo sources plans can read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range demoSources {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
