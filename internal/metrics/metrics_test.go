package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	assert.NotPanics(t, func() { Register(reg) })

	TaskRuns.WithLabelValues("sync.job", "ok").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(TaskRuns.WithLabelValues("sync.job", "ok")))

	assert.Panics(t, func() { Register(reg) })
}
