package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(transitions.WithLabelValues("created"))
	IncTransition("created")
	assert.Equal(t, before+1, testutil.ToFloat64(transitions.WithLabelValues("created")))

	beforeConflicts := testutil.ToFloat64(conflicts)
	IncConflict()
	assert.Equal(t, beforeConflicts+1, testutil.ToFloat64(conflicts))

	beforeAudit := testutil.ToFloat64(auditFailures.WithLabelValues("store"))
	IncAuditFailure("store")
	assert.Equal(t, beforeAudit+1, testutil.ToFloat64(auditFailures.WithLabelValues("store")))
}
