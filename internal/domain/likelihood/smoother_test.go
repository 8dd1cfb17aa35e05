package likelihood

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Textbook additive-smoothing check: key A seen 9 times, key B once, pseudo
// count 1, keyspace taken from the observed vocabulary.
func TestLaplaceSmoother_KnownDistribution(t *testing.T) {
	table := NewFrequencyTable()
	table.AccumulateCounts(map[Key]uint64{"A": 9, "B": 1})

	s, err := NewLaplaceSmoother(1, 0)
	require.NoError(t, err)

	assert.InDelta(t, 10.0/12.0, s.Probability("A", table), 1e-12)
	assert.InDelta(t, 2.0/12.0, s.Probability("B", table), 1e-12)
	assert.InDelta(t, 1.0/12.0, s.Probability("unseen", table), 1e-12)

	for _, key := range []Key{"A", "B", "unseen"} {
		assert.InDelta(t, math.Log(s.Probability(key, table)), s.LogProbability(key, table), 1e-12)
	}
}

func TestLaplaceSmoother_AlwaysPositiveAndFinite(t *testing.T) {
	table := NewFrequencyTable()
	table.AccumulateCounts(map[Key]uint64{"A": 1_000_000})

	s := NewDefaultLaplaceSmoother()
	for _, key := range []Key{"A", "never-seen"} {
		p := s.Probability(key, table)
		assert.Greater(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		assert.False(t, math.IsInf(s.LogProbability(key, table), -1))
	}
}

func TestLaplaceSmoother_EmptyTableIsValidPrior(t *testing.T) {
	table := NewFrequencyTable()

	tests := []struct {
		name     string
		smoother LaplaceSmoother
	}{
		{"fixed_keyspace", LaplaceSmoother{PseudoCount: 0.1, EstimatedKeyspace: 2e6}},
		{"vocabulary_keyspace", LaplaceSmoother{PseudoCount: 0.1, EstimatedKeyspace: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.smoother.Probability("anything", table)
			assert.Greater(t, p, 0.0)
			assert.False(t, math.IsNaN(p))
			assert.False(t, math.IsInf(math.Log(p), 0))
		})
	}
}

func TestLaplaceSmoother_KeyspaceSelection(t *testing.T) {
	fixed := &LaplaceSmoother{PseudoCount: 0.1, EstimatedKeyspace: 2e6}
	// A fixed keyspace estimate makes the vocabulary size irrelevant.
	assert.Equal(t,
		fixed.ProbabilityForCount(5, 10, 2),
		fixed.ProbabilityForCount(5, 10, 5000))

	vocab := &LaplaceSmoother{PseudoCount: 0.1, EstimatedKeyspace: 0}
	assert.NotEqual(t,
		vocab.ProbabilityForCount(5, 10, 2),
		vocab.ProbabilityForCount(5, 10, 5000))
}

func TestNewLaplaceSmoother_RejectsBadParams(t *testing.T) {
	tests := []struct {
		name     string
		pseudo   float64
		keyspace float64
	}{
		{"zero_pseudo", 0, 2e6},
		{"negative_pseudo", -0.5, 2e6},
		{"nan_pseudo", math.NaN(), 2e6},
		{"negative_keyspace", 0.1, -1},
		{"inf_keyspace", 0.1, math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLaplaceSmoother(tt.pseudo, tt.keyspace)
			assert.Error(t, err)
		})
	}
}

func TestProbabilityForCount_MatchesTableLookup(t *testing.T) {
	table := NewFrequencyTable()
	table.AccumulateCounts(map[Key]uint64{"A": 7, "B": 3})

	s := NewDefaultLaplaceSmoother()
	assert.Equal(t,
		s.Probability("A", table),
		s.ProbabilityForCount(7, table.Total(), table.VocabularySize()))
	assert.Equal(t,
		s.Probability("missing", table),
		s.ProbabilityForCount(0, table.Total(), table.VocabularySize()))
}
