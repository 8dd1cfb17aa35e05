package likelihood

import (
	"io"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/turtacn/MolScore/pkg/errors"
	"github.com/turtacn/MolScore/pkg/types/molecule"

	"github.com/turtacn/MolScore/internal/domain/fingerprint"
)

// ModelKind identifies a likelihood model family.  The kind is persisted in
// every saved document and checked on load so a model trained under one
// scoring scheme is never interpreted under another.
type ModelKind string

const (
	// KindAtomLL scores molecules by the summed log-probability of their
	// individual fingerprint keys, normalized by atom count.
	KindAtomLL ModelKind = "AtomLL"

	// KindMolLL scores molecules by the log-probability of observing each
	// key at its within-molecule multiplicity.
	KindMolLL ModelKind = "MolLL"

	// KindPropLL is reserved for property-distribution likelihood models.
	// Documents of this kind round-trip through persistence but cannot be
	// instantiated for scoring yet.
	KindPropLL ModelKind = "PropLL"
)

// ParseModelKind converts a string into a ModelKind, rejecting unknown values.
func ParseModelKind(s string) (ModelKind, error) {
	switch kind := ModelKind(s); kind {
	case KindAtomLL, KindMolLL, KindPropLL:
		return kind, nil
	default:
		return "", errors.Newf(errors.ErrCodeModelKindUnsupported, "unsupported model kind %q", s)
	}
}

// Params collects the tunable parameters shared by the likelihood models.
type Params struct {
	// Radius is the fingerprint environment radius.
	Radius int

	// PseudoCount is the Laplace smoothing constant.
	PseudoCount float64

	// EstimatedKeyspace is the assumed fingerprint key space size; zero
	// selects the observed vocabulary size.
	EstimatedKeyspace float64

	// Alpha is the atom-count normalization exponent in [0, 1].  1 yields a
	// per-atom mean log-likelihood, 0 the raw sum.
	Alpha float64
}

// DefaultParams returns the training defaults.
func DefaultParams() Params {
	return Params{
		Radius:            1,
		PseudoCount:       DefaultPseudoCount,
		EstimatedKeyspace: DefaultEstimatedKeyspace,
		Alpha:             1,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	if p.Radius < 0 {
		return errors.InvalidParamf("radius must be non-negative, got %d", p.Radius)
	}
	if p.PseudoCount <= 0 || math.IsNaN(p.PseudoCount) || math.IsInf(p.PseudoCount, 0) {
		return errors.InvalidParamf("pseudo count must be strictly positive, got %v", p.PseudoCount)
	}
	if p.EstimatedKeyspace < 0 || math.IsNaN(p.EstimatedKeyspace) || math.IsInf(p.EstimatedKeyspace, 0) {
		return errors.InvalidParamf("estimated keyspace must be non-negative, got %v", p.EstimatedKeyspace)
	}
	if p.Alpha < 0 || p.Alpha > 1 || math.IsNaN(p.Alpha) {
		return errors.InvalidParamf("alpha must be in [0, 1], got %v", p.Alpha)
	}
	return nil
}

// SkipRecord describes one molecule rejected during training.
type SkipRecord struct {
	SMILES string `json:"smiles"`
	Reason string `json:"reason"`
}

// AnalysisReport summarizes one AnalyzeDataset pass.
type AnalysisReport struct {
	MoleculesTotal    int          `json:"molecules_total"`
	MoleculesAccepted int          `json:"molecules_accepted"`
	KeysAccumulated   uint64       `json:"keys_accumulated"`
	VocabularySize    int          `json:"vocabulary_size"`
	Skipped           []SkipRecord `json:"skipped,omitempty"`
}

// Model is the contract shared by the likelihood estimators.  Implementations
// are safe for concurrent scoring; training and scoring must not overlap
// unless the implementation states otherwise.
type Model interface {
	// Kind returns the model family identifier.
	Kind() ModelKind

	// Params returns the parameters the model was constructed with.
	Params() Params

	// AnalyzeDataset accumulates frequency statistics from the corpus.
	// Molecules that fail key extraction are skipped and reported rather
	// than aborting the pass.  Repeated calls accumulate.
	AnalyzeDataset(mols []molecule.Molecule) (*AnalysisReport, error)

	// CalculateLL scores a single molecule.  A molecule with no extractable
	// keys scores exactly 0.
	CalculateLL(mol molecule.Molecule) (float64, error)

	// CalculateLLs scores a batch, one result per input in order.  A
	// molecule that fails to score yields NaN in its slot.
	CalculateLLs(mols []molecule.Molecule) []float64

	// Save serializes the trained model as a JSON document.
	Save(w io.Writer) error
}

// ─────────────────────────────────────────────────────────────────────────────
// AtomLL
// ─────────────────────────────────────────────────────────────────────────────

// AtomLL treats every fingerprint key occurrence in the corpus as an
// independent draw from a categorical distribution over keys.  A molecule's
// score is the sum of smoothed log-probabilities of its keys, counted with
// multiplicity, divided by atomCount^alpha.
//
// Scoring is safe to call concurrently.  AnalyzeDataset takes the write lock,
// so concurrent training and scoring serialize correctly, though scores taken
// mid-training reflect a partially updated corpus.
type AtomLL struct {
	params    Params
	extractor fingerprint.Extractor
	smoother  *LaplaceSmoother

	mu    sync.RWMutex
	table *FrequencyTable
}

// NewAtomLL constructs an untrained AtomLL estimator.
func NewAtomLL(params Params) (*AtomLL, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &AtomLL{
		params:    params,
		extractor: fingerprint.NewMorganExtractor(params.Radius),
		smoother:  &LaplaceSmoother{PseudoCount: params.PseudoCount, EstimatedKeyspace: params.EstimatedKeyspace},
		table:     NewFrequencyTable(),
	}, nil
}

// newAtomLLWithExtractor injects a custom extractor, used by tests and by
// deployments with a full cheminformatics toolkit.
func newAtomLLWithExtractor(params Params, ext fingerprint.Extractor) (*AtomLL, error) {
	m, err := NewAtomLL(params)
	if err != nil {
		return nil, err
	}
	m.extractor = ext
	return m, nil
}

// Kind implements Model.
func (m *AtomLL) Kind() ModelKind { return KindAtomLL }

// Params implements Model.
func (m *AtomLL) Params() Params { return m.params }

// atomKey converts a raw fingerprint hash into its table key.
func atomKey(hash uint64) Key {
	return Key(strconv.FormatUint(hash, 10))
}

// AnalyzeDataset implements Model.
func (m *AtomLL) AnalyzeDataset(mols []molecule.Molecule) (*AnalysisReport, error) {
	report := &AnalysisReport{MoleculesTotal: len(mols)}
	batch := make(map[Key]uint64)

	for _, mol := range mols {
		keys, err := m.extractor.Keys(mol)
		if err != nil {
			if errors.IsInvalidInput(err) {
				report.Skipped = append(report.Skipped, SkipRecord{SMILES: mol.SMILES, Reason: err.Error()})
				continue
			}
			return nil, err
		}
		report.MoleculesAccepted++
		for hash, mult := range keys {
			batch[atomKey(hash)] += uint64(mult)
			report.KeysAccumulated += uint64(mult)
		}
	}

	m.mu.Lock()
	m.table.AccumulateCounts(batch)
	report.VocabularySize = m.table.VocabularySize()
	m.mu.Unlock()

	return report, nil
}

// CalculateLL implements Model.
func (m *AtomLL) CalculateLL(mol molecule.Molecule) (float64, error) {
	keys, err := m.extractor.Keys(mol)
	if err != nil {
		return 0, err
	}
	atomCount := keys.TotalAtoms()
	if atomCount == 0 {
		return 0, nil
	}

	// Sort before summing: float addition is order-dependent, and scores
	// must be bit-identical across runs.
	hashes := make([]uint64, 0, len(keys))
	for hash := range keys {
		hashes = append(hashes, hash)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })

	m.mu.RLock()
	defer m.mu.RUnlock()

	sum := 0.0
	for _, hash := range hashes {
		sum += float64(keys[hash]) * m.smoother.LogProbability(atomKey(hash), m.table)
	}
	return sum / math.Pow(float64(atomCount), m.params.Alpha), nil
}

// CalculateLLs implements Model.
func (m *AtomLL) CalculateLLs(mols []molecule.Molecule) []float64 {
	return calculateBatch(m, mols)
}

// Save implements Model.
func (m *AtomLL) Save(w io.Writer) error {
	m.mu.RLock()
	doc := m.document()
	m.mu.RUnlock()
	return writeDocument(w, doc)
}

func (m *AtomLL) document() *Document {
	snap := m.table.Snapshot()
	smoother := m.smoother.snapshotParams()
	radius, alpha := m.params.Radius, m.params.Alpha
	return &Document{
		FormatVersion: FormatVersion,
		ModelKind:     KindAtomLL,
		Radius:        &radius,
		Alpha:         &alpha,
		Smoother:      &smoother,
		FrequencyTable: &tableDocument{
			Total:          snap.Total,
			VocabularySize: snap.VocabularySize,
			Counts:         snap.Counts,
		},
	}
}

// restore replaces the model's statistics with persisted counts.  Used by
// the document loader.
func (m *AtomLL) restore(counts map[Key]uint64) {
	m.mu.Lock()
	m.table = tableFromCounts(counts)
	m.mu.Unlock()
}

// calculateBatch applies CalculateLL across a slice, mapping per-molecule
// failures to NaN so one bad input never poisons the batch.
func calculateBatch(m Model, mols []molecule.Molecule) []float64 {
	scores := make([]float64, len(mols))
	for i, mol := range mols {
		score, err := m.CalculateLL(mol)
		if err != nil {
			scores[i] = math.NaN()
			continue
		}
		scores[i] = score
	}
	return scores
}
