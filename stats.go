package phydes

// stats.go holds the small online-statistics support the test harness
// uses to check distributional properties of channel realizations.

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// RunningStats accumulates mean and variance in a single pass using
// Welford's online algorithm, numerically stable for long runs.
type RunningStats struct {
	n    int64
	mean float64
	m2   float64
}

// Push folds one observation into the accumulator
func (rs *RunningStats) Push(x float64) {
	rs.n += 1
	delta := x - rs.mean
	rs.mean += delta / float64(rs.n)
	rs.m2 += delta * (x - rs.mean)
}

// N returns the number of observations seen
func (rs *RunningStats) N() int64 {
	return rs.n
}

// Mean returns the running mean
func (rs *RunningStats) Mean() float64 {
	return rs.mean
}

// Variance returns the unbiased sample variance; it needs at least two
// observations
func (rs *RunningStats) Variance() float64 {
	if rs.n < 2 {
		return 0.0
	}
	return rs.m2 / float64(rs.n-1)
}

// StdDev returns the sample standard deviation
func (rs *RunningStats) StdDev() float64 {
	return math.Sqrt(rs.Variance())
}

// TStatistic returns the one-sample t statistic for the hypothesis
// that the population mean equals mu0
func (rs *RunningStats) TStatistic(mu0 float64) float64 {
	return (rs.mean - mu0) / (rs.StdDev() / math.Sqrt(float64(rs.n)))
}

// MeanDiffersFrom runs a two-sided one-sample t-test of mean == mu0 at
// significance alpha, returning true when the hypothesis is rejected
func (rs *RunningStats) MeanDiffersFrom(mu0, alpha float64) bool {
	dist := distuv.StudentsT{Mu: 0.0, Sigma: 1.0, Nu: float64(rs.n - 1)}
	critical := dist.Quantile(1.0 - alpha/2.0)
	return math.Abs(rs.TStatistic(mu0)) > critical
}
