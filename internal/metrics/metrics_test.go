package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.VotesCast.Inc()
	m.VotesRejected.WithLabelValues("already_voted").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.VotesCast))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.VotesRejected.WithLabelValues("already_voted")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["housecup_votes_cast_total"])
	assert.True(t, names["housecup_votes_rejected_total"])
}

func TestNewWithoutRegistry(t *testing.T) {
	m := New(nil)
	m.WinnersDeclared.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WinnersDeclared))
}
