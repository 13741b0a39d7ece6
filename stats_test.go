package phydes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunningStatsMatchesClosedForm(t *testing.T) {
	samples := []float64{2.0, 4.0, 4.0, 4.0, 5.0, 5.0, 7.0, 9.0}

	rs := &RunningStats{}
	for _, x := range samples {
		rs.Push(x)
	}

	mean := 0.0
	for _, x := range samples {
		mean += x
	}
	mean /= float64(len(samples))
	ssq := 0.0
	for _, x := range samples {
		ssq += (x - mean) * (x - mean)
	}
	variance := ssq / float64(len(samples)-1)

	require.Equal(t, int64(len(samples)), rs.N())
	assert.InDelta(t, mean, rs.Mean(), 1e-12)
	assert.InDelta(t, variance, rs.Variance(), 1e-12)
	assert.InDelta(t, math.Sqrt(variance), rs.StdDev(), 1e-12)
}

func TestRunningStatsDegenerateCases(t *testing.T) {
	rs := &RunningStats{}
	assert.Equal(t, int64(0), rs.N())
	assert.Equal(t, 0.0, rs.Mean())
	assert.Equal(t, 0.0, rs.Variance())

	rs.Push(3.5)
	assert.Equal(t, 3.5, rs.Mean())
	assert.Equal(t, 0.0, rs.Variance())
}

func TestTStatisticAgainstHandComputation(t *testing.T) {
	rs := &RunningStats{}
	for _, x := range []float64{1.0, 2.0, 3.0, 4.0, 5.0} {
		rs.Push(x)
	}
	// mean 3, sample stddev sqrt(2.5), n 5
	want := (3.0 - 2.0) / (math.Sqrt(2.5) / math.Sqrt(5.0))
	assert.InDelta(t, want, rs.TStatistic(2.0), 1e-12)
}

func TestMeanDiffersFromDecision(t *testing.T) {
	rs := &RunningStats{}
	for i := 0; i < 100; i++ {
		rs.Push(10.0 + 0.01*float64(i%5))
	}

	// sample mean sits near 10.02 with tiny spread
	assert.True(t, rs.MeanDiffersFrom(9.0, 0.05))
	assert.False(t, rs.MeanDiffersFrom(rs.Mean(), 0.05))
}
