package seqflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/baxromumarov/seqflow"
	"github.com/stretchr/testify/assert"
)

func TestReportUnhandled(t *testing.T) {
	unhandled := captureUnhandled(t)

	seqflow.ReportUnhandled(nil)
	seqflow.ReportUnhandled(context.Canceled)
	seqflow.ReportUnhandled(seqflow.ErrDisposed)
	boom := errors.New("boom")
	seqflow.ReportUnhandled(boom)

	assert.Equal(t, []error{boom}, unhandled())
}

func TestErrorHelpers(t *testing.T) {
	boom := errors.New("boom")

	assert.True(t, seqflow.IsCancellation(seqflow.ErrDisposed))
	assert.True(t, seqflow.IsCancellation(context.DeadlineExceeded))
	assert.False(t, seqflow.IsCancellation(boom))

	assert.Nil(t, seqflow.NewAggregateFault("op", []error{nil, nil}))
	agg := seqflow.NewAggregateFault("fanout", []error{nil, boom})
	assert.ErrorIs(t, agg, boom)
	assert.EqualError(t, agg, "fanout: 1 fault(s): boom")

	ve := seqflow.NewValidationError("query", "a", "b")
	assert.EqualError(t, ve, "query: 2 issues: a; b")
	assert.True(t, seqflow.IsValidationError(ve))

	pf := &seqflow.ProducerFault{Op: "Select", Err: boom}
	assert.Equal(t, boom, seqflow.CauseOf(pf))
	assert.Equal(t, boom, seqflow.CauseOf(boom))
	assert.Nil(t, seqflow.CauseOf(nil))
}
