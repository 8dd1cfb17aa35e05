package likelihood

import (
	"math"

	"github.com/turtacn/MolScore/pkg/errors"
)

// Smoother converts raw frequency counts into probability estimates that
// never collapse to zero, keeping log-probabilities finite for keys the
// training corpus has never seen.
type Smoother interface {
	// Probability returns the smoothed probability estimate for key given the
	// accumulated statistics in table.  The result is strictly positive.
	Probability(key Key, table *FrequencyTable) float64

	// LogProbability is the natural logarithm of Probability.  Always finite.
	LogProbability(key Key, table *FrequencyTable) float64
}

// LaplaceSmoother implements additive (Laplace) smoothing:
//
//	P(key) = (count + pseudo) / (total + pseudo * K)
//
// where K is the size of the key space.  When EstimatedKeyspace is positive
// it is used as K directly; molecular fingerprint spaces are far larger than
// any observed vocabulary, so a fixed estimate keeps probabilities stable as
// the corpus grows.  When EstimatedKeyspace is zero, K falls back to the
// observed vocabulary size of the table.
type LaplaceSmoother struct {
	// PseudoCount is the additive constant applied to every count.  Must be
	// strictly positive; NewLaplaceSmoother rejects other values.
	PseudoCount float64

	// EstimatedKeyspace is the assumed number of possible keys.  Zero selects
	// the observed vocabulary size of the table being queried.
	EstimatedKeyspace float64
}

// DefaultPseudoCount and DefaultEstimatedKeyspace are the training defaults.
// The keyspace estimate reflects the approximate number of distinct
// radius-1 environment keys seen across large public compound collections.
const (
	DefaultPseudoCount       = 0.1
	DefaultEstimatedKeyspace = 2e6
)

// NewLaplaceSmoother validates the parameters and returns a smoother.
func NewLaplaceSmoother(pseudoCount, estimatedKeyspace float64) (*LaplaceSmoother, error) {
	if pseudoCount <= 0 || math.IsNaN(pseudoCount) || math.IsInf(pseudoCount, 0) {
		return nil, errors.InvalidParamf("pseudo count must be strictly positive, got %v", pseudoCount)
	}
	if estimatedKeyspace < 0 || math.IsNaN(estimatedKeyspace) || math.IsInf(estimatedKeyspace, 0) {
		return nil, errors.InvalidParamf("estimated keyspace must be non-negative, got %v", estimatedKeyspace)
	}
	return &LaplaceSmoother{PseudoCount: pseudoCount, EstimatedKeyspace: estimatedKeyspace}, nil
}

// NewDefaultLaplaceSmoother returns a smoother with the training defaults.
func NewDefaultLaplaceSmoother() *LaplaceSmoother {
	return &LaplaceSmoother{
		PseudoCount:       DefaultPseudoCount,
		EstimatedKeyspace: DefaultEstimatedKeyspace,
	}
}

// Probability implements Smoother.
func (s *LaplaceSmoother) Probability(key Key, table *FrequencyTable) float64 {
	return s.ProbabilityForCount(table.CountOf(key), table.Total(), table.VocabularySize())
}

// LogProbability implements Smoother.
func (s *LaplaceSmoother) LogProbability(key Key, table *FrequencyTable) float64 {
	return math.Log(s.Probability(key, table))
}

// ProbabilityForCount computes the smoothed probability from raw numbers
// without a table.  MolLL uses it to smooth derived counts that do not live
// in a FrequencyTable of their own.
func (s *LaplaceSmoother) ProbabilityForCount(count, total uint64, vocabularySize int) float64 {
	keyspace := s.EstimatedKeyspace
	if keyspace == 0 {
		keyspace = float64(vocabularySize)
	}
	if keyspace < 1 {
		// Empty table with no keyspace estimate; treat as a single-slot space
		// so the uninformed prior stays a valid probability.
		keyspace = 1
	}
	return (float64(count) + s.PseudoCount) / (float64(total) + s.PseudoCount*keyspace)
}

// snapshotParams captures the smoother configuration for persistence.
func (s *LaplaceSmoother) snapshotParams() smootherDocument {
	return smootherDocument{
		Policy:            smootherPolicyLaplace,
		PseudoCount:       s.PseudoCount,
		EstimatedKeyspace: s.EstimatedKeyspace,
	}
}
