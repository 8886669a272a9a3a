package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/seqflow"
)

const northPlan = `
op: take
n: 2
input:
  op: where
  where: {field: region, op: eq, value: north}
  input: {op: source, name: orders}
`

const joinPlan = `
op: join
left: {op: source, name: orders}
right: {op: source, name: customers}
left_key: customer
right_key: id
`

func writePlan(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "seqflow", cmd.Use)

	for _, name := range []string{"explain", "run", "sources"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "--format", "xml", "sources")
	assert.ErrorContains(t, err, `invalid format "xml"`)
}

func TestSourcesCommand(t *testing.T) {
	out, _, err := execute(t, "sources")
	require.NoError(t, err)
	assert.Equal(t, "customers\nnumbers\norders\n", out)
}

func TestExplainCommand(t *testing.T) {
	out, _, err := execute(t, "explain", writePlan(t, northPlan))
	require.NoError(t, err)
	assert.Equal(t, "take 2\n  where region eq \"north\"\n    source orders\n", out)
}

func TestExplainRejectsUnknownSource(t *testing.T) {
	_, _, err := execute(t, "explain", writePlan(t, "op: source\nname: invoices\n"))
	require.Error(t, err)
	assert.True(t, seqflow.IsValidationError(err))
	assert.ErrorContains(t, err, "invoices")
}

func TestRunCommandText(t *testing.T) {
	out, _, err := execute(t, "run", writePlan(t, northPlan))
	require.NoError(t, err)
	assert.Equal(t,
		"map[customer:1 id:1 region:north total:10]\nmap[customer:1 id:3 region:north total:20]\n",
		out)
}

func TestRunCommandAggregate(t *testing.T) {
	plan := `
op: aggregate
agg: sum
input: {op: source, name: numbers}
`
	out, _, err := execute(t, "run", writePlan(t, plan))
	require.NoError(t, err)
	assert.Equal(t, "55\n", out)
}

func TestRunCommandAsyncJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "run", "--async", writePlan(t, joinPlan))
	require.NoError(t, err)

	var res runOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "offloaded", res.Mode)
	assert.NotEmpty(t, res.ID)
	assert.Len(t, res.Items, 5)
}

func TestRunCommandVerboseLogsToStderr(t *testing.T) {
	out, logs, err := execute(t, "-v", "--format", "json", "run", writePlan(t, northPlan))
	require.NoError(t, err)
	assert.Contains(t, logs, "query: execution started")
	assert.Contains(t, logs, "exec_id=")

	var res runOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res), "stdout stays valid JSON")
	assert.Equal(t, "inline", res.Mode)
}

func TestRunCommandMissingFile(t *testing.T) {
	_, _, err := execute(t, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read plan file")
}
