package likelihood

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolScore/pkg/errors"
	"github.com/turtacn/MolScore/pkg/types/molecule"
)

func TestPretrainedAtomLL(t *testing.T) {
	for radius := MinPretrainedRadius; radius <= MaxPretrainedRadius; radius++ {
		m, err := PretrainedAtomLL(radius)
		require.NoError(t, err, "radius %d", radius)
		assert.Equal(t, radius, m.Params().Radius)
		assert.Greater(t, m.table.VocabularySize(), 0)

		score, err := m.CalculateLL(molecule.MustNew("CCO"))
		require.NoError(t, err)
		assert.Less(t, score, 0.0)
	}
}

func TestPretrainedMolLL(t *testing.T) {
	for radius := MinPretrainedRadius; radius <= MaxPretrainedRadius; radius++ {
		m, err := PretrainedMolLL(radius)
		require.NoError(t, err, "radius %d", radius)
		assert.Equal(t, radius, m.Params().Radius)

		score, err := m.CalculateLL(molecule.MustNew("c1ccccc1"))
		require.NoError(t, err)
		assert.Less(t, score, 0.0)
	}
}

func TestPretrained_UnavailableRadius(t *testing.T) {
	for _, radius := range []int{0, 4} {
		_, err := PretrainedAtomLL(radius)
		assert.True(t, errors.IsCode(err, errors.ErrCodeModelNotFound), "radius %d: %v", radius, err)
	}
}

func TestPretrained_Dispatch(t *testing.T) {
	m, err := Pretrained(KindMolLL, 2)
	require.NoError(t, err)
	assert.Equal(t, KindMolLL, m.Kind())

	_, err = Pretrained(KindPropLL, 1)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelNotFound))
}

func TestPretrained_InstancesAreIndependent(t *testing.T) {
	first, err := PretrainedAtomLL(1)
	require.NoError(t, err)
	second, err := PretrainedAtomLL(1)
	require.NoError(t, err)

	_, err = first.AnalyzeDataset(mols("CCO", "CCC"))
	require.NoError(t, err)

	assert.NotEqual(t, first.table.Total(), second.table.Total(),
		"retraining one instance must not leak into another")
}
