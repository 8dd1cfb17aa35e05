package likelihood

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/turtacn/MolScore/pkg/errors"
	"github.com/turtacn/MolScore/pkg/types/molecule"

	"github.com/turtacn/MolScore/internal/domain/fingerprint"
)

// sampleSumBase is the reserved base key recording, per training molecule,
// the total key multiplicity of that molecule.  It lets the model score how
// normal a molecule's overall key volume is, not just its individual keys.
// Fingerprint base keys are decimal digit strings, so this name cannot
// collide.
const sampleSumBase = "SampleObservationSum"

// MolLL scores a molecule by how typical each key's within-molecule
// multiplicity is of the corpus.  Where AtomLL asks "how common is this
// key?", MolLL asks "how common is it for a molecule to contain this key
// exactly this many times?".
//
// Statistics are kept in the shared FrequencyTable under composite
// "base:multiplicity" keys, counting training molecules per (key,
// multiplicity) pair.  Raw counts are what persists; the multiplicity
// profile of each base key is sparse and noisy, so a smoothed lookup is
// derived from the raw counts after every training pass and on load.  The
// derivation is deterministic, which keeps save/load round trips exact.
//
// Scoring is safe to call concurrently; AnalyzeDataset takes the write lock.
type MolLL struct {
	params    Params
	extractor fingerprint.Extractor
	smoother  *LaplaceSmoother

	mu    sync.RWMutex
	table *FrequencyTable

	// Derived from table; rebuilt by refreshDerived.
	smoothed      map[Key]uint64
	nObservations uint64
}

// NewMolLL constructs an untrained MolLL estimator.
func NewMolLL(params Params) (*MolLL, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &MolLL{
		params:    params,
		extractor: fingerprint.NewMorganExtractor(params.Radius),
		smoother:  &LaplaceSmoother{PseudoCount: params.PseudoCount, EstimatedKeyspace: params.EstimatedKeyspace},
		table:     NewFrequencyTable(),
		smoothed:  map[Key]uint64{},
	}, nil
}

func newMolLLWithExtractor(params Params, ext fingerprint.Extractor) (*MolLL, error) {
	m, err := NewMolLL(params)
	if err != nil {
		return nil, err
	}
	m.extractor = ext
	return m, nil
}

// Kind implements Model.
func (m *MolLL) Kind() ModelKind { return KindMolLL }

// Params implements Model.
func (m *MolLL) Params() Params { return m.params }

// molKey builds the composite table key for a base key at a multiplicity.
func molKey(base string, multiplicity int) Key {
	return Key(base + ":" + strconv.Itoa(multiplicity))
}

// splitMolKey is the inverse of molKey.
func splitMolKey(key Key) (base string, multiplicity int, err error) {
	idx := strings.LastIndexByte(string(key), ':')
	if idx < 0 {
		return "", 0, errors.Newf(errors.ErrCodeCorruptDocument, "malformed composite key %q", key)
	}
	mult, convErr := strconv.Atoi(string(key[idx+1:]))
	if convErr != nil || mult < 0 {
		return "", 0, errors.Newf(errors.ErrCodeCorruptDocument, "malformed multiplicity in key %q", key)
	}
	return string(key[:idx]), mult, nil
}

// AnalyzeDataset implements Model.
func (m *MolLL) AnalyzeDataset(mols []molecule.Molecule) (*AnalysisReport, error) {
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
			batch[molKey(strconv.FormatUint(hash, 10), mult)]++
			report.KeysAccumulated++
		}
		batch[molKey(sampleSumBase, keys.TotalAtoms())]++
		report.KeysAccumulated++
	}

	m.mu.Lock()
	m.table.AccumulateCounts(batch)
	err := m.refreshDerived()
	report.VocabularySize = m.table.VocabularySize()
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return report, nil
}

// refreshDerived rebuilds the smoothed lookup and the observation total from
// the raw table.  Caller holds the write lock.
func (m *MolLL) refreshDerived() error {
	profiles := make(map[string]map[int]uint64)
	var nObs uint64

	for key, count := range m.table.counts {
		base, mult, err := splitMolKey(key)
		if err != nil {
			return err
		}
		profile := profiles[base]
		if profile == nil {
			profile = make(map[int]uint64)
			profiles[base] = profile
		}
		profile[mult] = count
		nObs += uint64(mult) * count
	}

	smoothed := make(map[Key]uint64, m.table.VocabularySize())
	for base, profile := range profiles {
		for mult, count := range smoothProfile(profile) {
			smoothed[molKey(base, mult)] = count
		}
	}

	m.smoothed = smoothed
	m.nObservations = nObs
	return nil
}

// smoothProfile flattens the noise in a sparse multiplicity profile.  Each
// count at multiplicity m >= 2 is replaced by the ceiling of the geometric
// mean of the counts at m-1, m, and m+1, each lifted by 0.15 so that zero
// neighbors dampen rather than annihilate the estimate.  The count at
// multiplicity 1 passes through untouched.
func smoothProfile(profile map[int]uint64) map[int]uint64 {
	maxMult := 0
	for mult := range profile {
		if mult > maxMult {
			maxMult = mult
		}
	}

	smoothed := make(map[int]uint64, maxMult)
	if n, ok := profile[1]; ok && n > 0 {
		smoothed[1] = n
	}
	for mult := 2; mult <= maxMult; mult++ {
		logSum := 0.0
		for _, neighbor := range [3]int{mult - 1, mult, mult + 1} {
			logSum += math.Log(float64(profile[neighbor]) + 0.15)
		}
		smoothed[mult] = uint64(math.Ceil(math.Exp(logSum / 3)))
	}
	return smoothed
}

// CalculateLL implements Model.
func (m *MolLL) CalculateLL(mol molecule.Molecule) (float64, error) {
	keys, err := m.extractor.Keys(mol)
	if err != nil {
		return 0, err
	}
	if keys.TotalAtoms() == 0 {
		return 0, nil
	}

	hashes := make([]uint64, 0, len(keys))
	for hash := range keys {
		hashes = append(hashes, hash)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })

	m.mu.RLock()
	defer m.mu.RUnlock()

	vocab := len(m.smoothed)
	sum := 0.0
	atomCount := 0

	score := func(base string, mult int) {
		count := m.smoothed[molKey(base, mult)]
		p := m.smoother.ProbabilityForCount(count, m.nObservations, vocab)
		sum += math.Log(p) * float64(mult)
		atomCount += mult
	}

	for _, hash := range hashes {
		score(strconv.FormatUint(hash, 10), keys[hash])
	}
	// The sample-sum term scores the molecule's overall key volume.
	score(sampleSumBase, keys.TotalAtoms())

	return sum / math.Pow(float64(atomCount), m.params.Alpha), nil
}

// CalculateLLs implements Model.
func (m *MolLL) CalculateLLs(mols []molecule.Molecule) []float64 {
	return calculateBatch(m, mols)
}

// Save implements Model.
func (m *MolLL) Save(w io.Writer) error {
	m.mu.RLock()
	doc := m.document()
	m.mu.RUnlock()
	return writeDocument(w, doc)
}

func (m *MolLL) document() *Document {
	snap := m.table.Snapshot()
	smoother := m.smoother.snapshotParams()
	radius, alpha := m.params.Radius, m.params.Alpha
	return &Document{
		FormatVersion: FormatVersion,
		ModelKind:     KindMolLL,
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

// restore replaces the model state from a persisted table.  Used by the
// document loader.
func (m *MolLL) restore(counts map[Key]uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table = tableFromCounts(counts)
	if err := m.refreshDerived(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCorruptDocument,
			fmt.Sprintf("rebuilding %s lookup from persisted counts", KindMolLL))
	}
	return nil
}
