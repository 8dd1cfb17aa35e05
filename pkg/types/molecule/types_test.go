package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/MolScore/pkg/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		smiles   string
		wantCode errors.ErrorCode
	}{
		{"benzene", "c1ccccc1", ""},
		{"aspirin", "CC(=O)Oc1ccccc1C(=O)O", ""},
		{"bracket_atom", "C[NH2+]C", ""},
		{"empty", "", errors.ErrCodeMoleculeEmpty},
		{"whitespace_only", "   ", errors.ErrCodeMoleculeEmpty},
		{"unbalanced_paren", "CC(=O", errors.ErrCodeMoleculeInvalidSMILES},
		{"unbalanced_bracket", "C[NH2+C", errors.ErrCodeMoleculeInvalidSMILES},
		{"close_before_open", "CC)O(", errors.ErrCodeMoleculeInvalidSMILES},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Molecule{SMILES: tt.smiles}.Validate()
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.IsCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestNew(t *testing.T) {
	m, err := New("CCO")
	assert.NoError(t, err)
	assert.Equal(t, "CCO", m.SMILES)

	_, err = New("")
	assert.Error(t, err)
}

func TestFromSMILES(t *testing.T) {
	mols := FromSMILES([]string{"CCO", "", "c1ccccc1"})
	assert.Len(t, mols, 3)
	assert.Equal(t, "CCO", mols[0].SMILES)
	// Invalid entries pass through untouched; extraction rejects them later.
	assert.Equal(t, "", mols[1].SMILES)
}
