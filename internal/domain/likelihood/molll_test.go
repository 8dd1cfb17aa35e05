package likelihood

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolScore/pkg/types/molecule"

	"github.com/turtacn/MolScore/internal/domain/fingerprint"
)

func TestMolKeyRoundTrip(t *testing.T) {
	tests := []struct {
		base string
		mult int
	}{
		{"12345", 1},
		{"18446744073709551615", 42},
		{sampleSumBase, 7},
	}
	for _, tt := range tests {
		base, mult, err := splitMolKey(molKey(tt.base, tt.mult))
		require.NoError(t, err)
		assert.Equal(t, tt.base, base)
		assert.Equal(t, tt.mult, mult)
	}
}

func TestSplitMolKey_Malformed(t *testing.T) {
	for _, key := range []Key{"nocolon", "abc:", "abc:-1", "abc:x"} {
		_, _, err := splitMolKey(key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestSmoothProfile(t *testing.T) {
	// Multiplicity 1 passes through; a gap at multiplicity 2 is filled from
	// its neighbors; the tail decays instead of dropping to zero.
	got := smoothProfile(map[int]uint64{1: 9, 3: 2})
	assert.Equal(t, map[int]uint64{1: 9, 2: 2, 3: 1}, got)
}

func TestSmoothProfile_Empty(t *testing.T) {
	assert.Empty(t, smoothProfile(map[int]uint64{}))
}

func TestMolLL_AnalyzeDataset(t *testing.T) {
	ext := &stubExtractor{radius: 1, keys: map[string]fingerprint.KeySet{
		"m1": {1: 2, 2: 1},
		"m2": {1: 2},
	}}
	m, err := newMolLLWithExtractor(DefaultParams(), ext)
	require.NoError(t, err)

	report, err := m.AnalyzeDataset(mols("m1", "m2", "junk"))
	require.NoError(t, err)

	assert.Equal(t, 2, report.MoleculesAccepted)
	require.Len(t, report.Skipped, 1)

	// Key 1 at multiplicity 2 was seen in both molecules.
	assert.Equal(t, uint64(2), m.table.CountOf(molKey("1", 2)))
	assert.Equal(t, uint64(1), m.table.CountOf(molKey("2", 1)))
	// Per-molecule key volumes: 3 for m1, 2 for m2.
	assert.Equal(t, uint64(1), m.table.CountOf(molKey(sampleSumBase, 3)))
	assert.Equal(t, uint64(1), m.table.CountOf(molKey(sampleSumBase, 2)))
}

func TestMolLL_TypicalMultiplicityScoresHigher(t *testing.T) {
	ext := &stubExtractor{radius: 1, keys: map[string]fingerprint.KeySet{
		"train":    {5: 2},
		"typical":  {5: 2},
		"atypical": {5: 7},
	}}
	m, err := newMolLLWithExtractor(DefaultParams(), ext)
	require.NoError(t, err)

	corpus := make([]molecule.Molecule, 60)
	for i := range corpus {
		corpus[i] = molecule.Molecule{SMILES: "train"}
	}
	_, err = m.AnalyzeDataset(corpus)
	require.NoError(t, err)

	typical, err := m.CalculateLL(molecule.Molecule{SMILES: "typical"})
	require.NoError(t, err)
	atypical, err := m.CalculateLL(molecule.Molecule{SMILES: "atypical"})
	require.NoError(t, err)

	assert.Greater(t, typical, atypical)
}

func TestMolLL_EmptyKeySetScoresZero(t *testing.T) {
	ext := &stubExtractor{radius: 1, keys: map[string]fingerprint.KeySet{
		"void": {},
	}}
	m, err := newMolLLWithExtractor(DefaultParams(), ext)
	require.NoError(t, err)

	score, err := m.CalculateLL(molecule.Molecule{SMILES: "void"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestMolLL_CalculateLLsMapsFailuresToNaN(t *testing.T) {
	ext := &stubExtractor{radius: 1, keys: map[string]fingerprint.KeySet{
		"good": {1: 1},
	}}
	m, err := newMolLLWithExtractor(DefaultParams(), ext)
	require.NoError(t, err)

	scores := m.CalculateLLs(mols("bad", "good"))
	require.Len(t, scores, 2)
	assert.True(t, math.IsNaN(scores[0]))
	assert.False(t, math.IsNaN(scores[1]))
}

func TestMolLL_SaveLoadRoundTrip(t *testing.T) {
	m, err := NewMolLL(DefaultParams())
	require.NoError(t, err)
	_, err = m.AnalyzeDataset(mols("CCO", "CCC", "c1ccccc1", "CC(=O)O", "CCCO"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))

	loaded, err := LoadModel(&buf)
	require.NoError(t, err)
	require.Equal(t, KindMolLL, loaded.Kind())

	for _, smiles := range []string{"CCO", "CCCCCC", "c1ccc(N)cc1"} {
		mol := molecule.MustNew(smiles)
		want, err := m.CalculateLL(mol)
		require.NoError(t, err)
		got, err := loaded.CalculateLL(mol)
		require.NoError(t, err)
		assert.Equal(t, want, got, "score drift after round trip for %s", smiles)
	}
}

func TestMolLL_Deterministic(t *testing.T) {
	m, err := NewMolLL(DefaultParams())
	require.NoError(t, err)
	_, err = m.AnalyzeDataset(mols("CCO", "CCN", "CCC"))
	require.NoError(t, err)

	mol := molecule.MustNew("CCOC")
	first, err := m.CalculateLL(mol)
	require.NoError(t, err)
	second, err := m.CalculateLL(mol)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
