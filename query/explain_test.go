package query

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

func TestExplain_Golden(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
	}{
		{
			name: "aggregate_pipeline",
			plan: Aggregate{Op: Sum, Field: "price", Input: Take{N: 10, Input: Where{
				Pred: And{
					Compare{Field: "price", Op: Gt, Value: 3},
					Or{
						Compare{Field: "name", Op: Contains, Value: "a"},
						Not{Pred: Compare{Field: "vip", Op: Eq, Value: true}},
					},
				},
				Input: Source{Name: "orders"},
			}}},
		},
		{
			name: "join_concat",
			plan: Select{
				Fields: []string{"left.name", "right.total"},
				Input: Join{
					Left:     Source{Name: "customers"},
					Right:    Concat{Inputs: []Plan{Source{Name: "orders"}, Source{Name: "archive"}}},
					LeftKey:  "id",
					RightKey: "customer_id",
				},
			},
		},
		{
			name: "mapped_skip",
			plan: &Skip{N: 2, Input: &Select{
				Label: "double",
				Fn:    func(v any) (any, error) { return v, nil },
				Input: &Source{Name: "nums"},
			}},
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.Assert(t, tt.name, []byte(Explain(tt.plan)))
		})
	}
}
