package query

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// planDoc is the YAML form of a plan node. Op selects the node kind; the
// other fields are read according to it.
//
//	op: take
//	n: 10
//	input:
//	  op: where
//	  where: {field: price, op: gt, value: 3}
//	  input: {op: source, name: orders}
type planDoc struct {
	Op       string     `yaml:"op"`
	Name     string     `yaml:"name,omitempty"`
	Input    *planDoc   `yaml:"input,omitempty"`
	Inputs   []*planDoc `yaml:"inputs,omitempty"`
	Left     *planDoc   `yaml:"left,omitempty"`
	Right    *planDoc   `yaml:"right,omitempty"`
	LeftKey  string     `yaml:"left_key,omitempty"`
	RightKey string     `yaml:"right_key,omitempty"`
	N        int        `yaml:"n,omitempty"`
	Fields   []string   `yaml:"fields,omitempty"`
	Where    *predDoc   `yaml:"where,omitempty"`
	Agg      string     `yaml:"agg,omitempty"`
	Field    string     `yaml:"field,omitempty"`
}

// predDoc is the YAML form of a predicate: a comparison (field, op, value)
// or exactly one of and, or, not.
type predDoc struct {
	Field string     `yaml:"field,omitempty"`
	Op    string     `yaml:"op,omitempty"`
	Value any        `yaml:"value,omitempty"`
	And   []*predDoc `yaml:"and,omitempty"`
	Or    []*predDoc `yaml:"or,omitempty"`
	Not   *predDoc   `yaml:"not,omitempty"`
}

// ParsePlan decodes a YAML plan. Unknown keys are rejected. The result is
// structurally complete but not validated; run [Validate] against a
// catalog before executing it.
func ParsePlan(data []byte) (Plan, error) {
	var doc planDoc
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("query: failed to parse plan: %w", err)
	}
	return doc.plan("plan")
}

// LoadPlan reads and decodes a YAML plan file.
func LoadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("query: failed to read plan file: %w", err)
	}
	return ParsePlan(data)
}

func (d *planDoc) plan(path string) (Plan, error) {
	if d == nil {
		return nil, fmt.Errorf("query: %s: missing node", path)
	}
	path += "." + d.Op

	switch d.Op {
	case "source":
		return Source{Name: d.Name}, nil
	case "where":
		in, err := d.Input.plan(path)
		if err != nil {
			return nil, err
		}
		pred, err := d.Where.predicate(path + ".where")
		if err != nil {
			return nil, err
		}
		return Where{Input: in, Pred: pred}, nil
	case "select":
		in, err := d.Input.plan(path)
		if err != nil {
			return nil, err
		}
		return Select{Input: in, Fields: d.Fields}, nil
	case "take", "skip":
		in, err := d.Input.plan(path)
		if err != nil {
			return nil, err
		}
		if d.Op == "take" {
			return Take{Input: in, N: d.N}, nil
		}
		return Skip{Input: in, N: d.N}, nil
	case "concat":
		inputs := make([]Plan, 0, len(d.Inputs))
		for i, x := range d.Inputs {
			in, err := x.plan(fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, in)
		}
		return Concat{Inputs: inputs}, nil
	case "join":
		left, err := d.Left.plan(path + ".left")
		if err != nil {
			return nil, err
		}
		right, err := d.Right.plan(path + ".right")
		if err != nil {
			return nil, err
		}
		return Join{Left: left, Right: right, LeftKey: d.LeftKey, RightKey: d.RightKey}, nil
	case "aggregate":
		in, err := d.Input.plan(path)
		if err != nil {
			return nil, err
		}
		return Aggregate{Input: in, Op: AggOp(d.Agg), Field: d.Field}, nil
	case "":
		return nil, fmt.Errorf("query: %s: op is required", path)
	default:
		return nil, fmt.Errorf("query: %s: unknown op %q", path, d.Op)
	}
}

func (d *predDoc) predicate(path string) (Predicate, error) {
	if d == nil {
		return nil, fmt.Errorf("query: %s: missing predicate", path)
	}

	set := 0
	for _, b := range []bool{d.Op != "", len(d.And) > 0, len(d.Or) > 0, d.Not != nil} {
		if b {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("query: %s: predicate needs exactly one of op, and, or, not", path)
	}

	switch {
	case d.Not != nil:
		inner, err := d.Not.predicate(path + ".not")
		if err != nil {
			return nil, err
		}
		return Not{Pred: inner}, nil
	case len(d.And) > 0:
		ps, err := predicates(path+".and", d.And)
		return And(ps), err
	case len(d.Or) > 0:
		ps, err := predicates(path+".or", d.Or)
		return Or(ps), err
	default:
		return Compare{Field: d.Field, Op: CmpOp(d.Op), Value: d.Value}, nil
	}
}

func predicates(path string, docs []*predDoc) ([]Predicate, error) {
	out := make([]Predicate, 0, len(docs))
	for i, d := range docs {
		p, err := d.predicate(fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
