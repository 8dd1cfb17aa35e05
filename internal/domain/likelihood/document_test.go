package likelihood

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolScore/pkg/errors"
)

const validAtomDoc = `{
  "format_version": 1,
  "model_kind": "AtomLL",
  "radius": 1,
  "alpha": 1,
  "smoother": {"policy": "laplace", "pseudo_count": 0.1, "estimated_keyspace": 2000000},
  "frequency_table": {"total": 10, "vocabulary_size": 2, "counts": {"111": 9, "222": 1}}
}`

func TestReadDocument_Valid(t *testing.T) {
	doc, err := ReadDocument(strings.NewReader(validAtomDoc))
	require.NoError(t, err)
	assert.Equal(t, KindAtomLL, doc.ModelKind)
	require.NotNil(t, doc.Radius)
	assert.Equal(t, 1, *doc.Radius)
	assert.Equal(t, uint64(10), doc.FrequencyTable.Total)
}

func TestReadDocument_Corrupt(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantCode errors.ErrorCode
	}{
		{
			"not_json",
			`{"format_version": `,
			errors.ErrCodeCorruptDocument,
		},
		{
			"wrong_format_version",
			strings.Replace(validAtomDoc, `"format_version": 1`, `"format_version": 2`, 1),
			errors.ErrCodeFormatVersionMismatch,
		},
		{
			"missing_format_version",
			strings.Replace(validAtomDoc, `"format_version": 1`, `"format_version": 0`, 1),
			errors.ErrCodeFormatVersionMismatch,
		},
		{
			"unknown_model_kind",
			strings.Replace(validAtomDoc, `"model_kind": "AtomLL"`, `"model_kind": "WordLL"`, 1),
			errors.ErrCodeModelKindUnsupported,
		},
		{
			"missing_radius",
			strings.Replace(validAtomDoc, `"radius": 1,`, ``, 1),
			errors.ErrCodeCorruptDocument,
		},
		{
			"missing_smoother",
			strings.Replace(validAtomDoc,
				`"smoother": {"policy": "laplace", "pseudo_count": 0.1, "estimated_keyspace": 2000000},`, ``, 1),
			errors.ErrCodeCorruptDocument,
		},
		{
			"unknown_smoother_policy",
			strings.Replace(validAtomDoc, `"policy": "laplace"`, `"policy": "gauss"`, 1),
			errors.ErrCodeCorruptDocument,
		},
		{
			"total_count_mismatch",
			strings.Replace(validAtomDoc, `"total": 10`, `"total": 11`, 1),
			errors.ErrCodeCorruptDocument,
		},
		{
			"vocabulary_size_mismatch",
			strings.Replace(validAtomDoc, `"vocabulary_size": 2`, `"vocabulary_size": 3`, 1),
			errors.ErrCodeCorruptDocument,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDocument(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestLoadModel_AtomLL(t *testing.T) {
	m, err := LoadModel(strings.NewReader(validAtomDoc))
	require.NoError(t, err)
	assert.Equal(t, KindAtomLL, m.Kind())
	assert.Equal(t, 1, m.Params().Radius)
	assert.Equal(t, 0.1, m.Params().PseudoCount)
}

func TestLoadModel_PropLLNotInstantiable(t *testing.T) {
	doc := `{"format_version": 1, "model_kind": "PropLL", "payload": {"bandwidth": 0.5}}`
	_, err := LoadModel(strings.NewReader(doc))
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotImplemented), "got %v", err)
}

func TestLoadModelKind_Mismatch(t *testing.T) {
	_, err := LoadModelKind(strings.NewReader(validAtomDoc), KindMolLL)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelKindMismatch), "got %v", err)
}

func TestLoadModel_InvalidParamsRejected(t *testing.T) {
	doc := strings.Replace(validAtomDoc, `"pseudo_count": 0.1`, `"pseudo_count": 0`, 1)
	_, err := LoadModel(strings.NewReader(doc))
	assert.Error(t, err)
}
