package randengine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/randengine"
)

func TestSameSeedSameSequence(t *testing.T) {
	a := randengine.New(42)
	b := randengine.New(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestSampleIndexDistinct(t *testing.T) {
	e := randengine.New(1)
	idx := e.SampleIndex(10, 7)
	assert.Len(t, idx, 7)
	seen := map[int]bool{}
	for _, i := range idx {
		assert.False(t, seen[i])
		assert.True(t, i >= 0 && i < 10)
		seen[i] = true
	}
	assert.Len(t, e.SampleIndex(3, 10), 3)
	assert.Nil(t, e.SampleIndex(3, 0))
}

func TestSampleDoesNotModifyInput(t *testing.T) {
	e := randengine.New(7)
	s := []string{"a", "b", "c", "d"}
	got := randengine.Sample(e, s, 2)
	assert.Len(t, got, 2)
	assert.Equal(t, []string{"a", "b", "c", "d"}, s)
}

func TestBetaInUnitInterval(t *testing.T) {
	e := randengine.New(3)
	sum := 0.
	for i := 0; i < 5000; i++ {
		v := e.Beta(1, 3)
		assert.True(t, v >= 0 && v <= 1)
		sum += v
	}
	// Beta(1,3)均值为0.25
	assert.InDelta(t, 0.25, sum/5000, 0.02)
	for i := 0; i < 1000; i++ {
		v := e.Beta(2, 5)
		assert.True(t, v >= 0 && v <= 1)
	}
}

func TestGammaMean(t *testing.T) {
	e := randengine.New(4)
	for _, shape := range []float64{.5, 2} {
		sum := 0.
		for i := 0; i < 5000; i++ {
			v := e.Gamma(shape)
			assert.GreaterOrEqual(t, v, 0.)
			sum += v
		}
		// 尺度为1时均值等于shape
		assert.InDelta(t, shape, sum/5000, .1)
	}
	assert.Zero(t, e.Gamma(0))
	assert.Zero(t, e.Beta(0, 1))
}

func TestGammaBetaSameSeed(t *testing.T) {
	a := randengine.New(8)
	b := randengine.New(8)
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Gamma(1.5), b.Gamma(1.5))
		assert.Equal(t, a.Beta(1.5, 10), b.Beta(1.5, 10))
		assert.Equal(t, a.Intn(100), b.Intn(100))
	}
}

func TestRandRange(t *testing.T) {
	e := randengine.New(9)
	for i := 0; i < 100; i++ {
		v := e.RandRange(20, 120)
		assert.True(t, v >= 20 && v < 120)
	}
	assert.Equal(t, 5, e.RandRange(5, 5))
}
