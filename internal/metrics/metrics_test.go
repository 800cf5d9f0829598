package metrics_test

import (
	"testing"

	"github.com/jrsteele09/contacts-auth/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCacheLookups(t *testing.T) {
	hits := testutil.ToFloat64(metrics.CacheLookupsTotal.WithLabelValues("hit"))
	misses := testutil.ToFloat64(metrics.CacheLookupsTotal.WithLabelValues("miss"))

	metrics.RecordCacheHit()
	metrics.RecordCacheHit()
	metrics.RecordCacheMiss()

	assert.Equal(t, hits+2, testutil.ToFloat64(metrics.CacheLookupsTotal.WithLabelValues("hit")))
	assert.Equal(t, misses+1, testutil.ToFloat64(metrics.CacheLookupsTotal.WithLabelValues("miss")))
}

func TestRecordTokenValidation(t *testing.T) {
	before := testutil.ToFloat64(metrics.TokenValidationsTotal.WithLabelValues("access", "expired"))

	metrics.RecordTokenValidation("access", "expired")

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.TokenValidationsTotal.WithLabelValues("access", "expired")))
}
