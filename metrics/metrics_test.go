package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/ltr/feature"
	"github.com/rushteam/ltr/registry"
)

var (
	_ feature.Monitor   = (*Metrics)(nil)
	_ registry.Observer = (*Metrics)(nil)
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
	assert.Error(t, m.Register(reg), "double registration")

	m.FeatureDegraded("pow")
	m.FeatureDegraded("pow")
	m.IncShardFailure("1")
	m.IncModelFallback("MODEL_NOT_FOUND")
	m.ReloadDone(nil)
	m.ReloadDone(errors.New("bad"))
	m.ObserveRerank("m", 0.002)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.featureDegraded.WithLabelValues("pow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.shardFailures.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelFallback.WithLabelValues("MODEL_NOT_FOUND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reloads.WithLabelValues(StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reloads.WithLabelValues(StatusFailure)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.rerankDuration))
}
