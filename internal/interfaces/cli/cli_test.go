package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeCorpusFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.smi")
	content := strings.Join([]string{
		"# reference corpus",
		"CCO ethanol",
		"CCN",
		"CCC",
		"c1ccccc1 benzene",
		"",
		"CC(C)O",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTrainCommand(t *testing.T) {
	corpus := writeCorpusFile(t)
	modelPath := filepath.Join(t.TempDir(), "model.json")

	out, err := runCommand(t, "train", "-m", "AtomLL", "-i", corpus, "-f", modelPath)
	require.NoError(t, err)
	assert.Contains(t, out, "5/5 molecules accepted")
	assert.Contains(t, out, modelPath)

	data, err := os.ReadFile(modelPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"model_kind": "AtomLL"`)
}

func TestTrainCommand_ReportsSkippedMolecules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.smi")
	require.NoError(t, os.WriteFile(path, []byte("CCO\nC(C\n"), 0o644))
	modelPath := filepath.Join(t.TempDir(), "model.json")

	out, err := runCommand(t, "train", "-i", path, "-f", modelPath)
	require.NoError(t, err)
	assert.Contains(t, out, "1/2 molecules accepted")
	assert.Contains(t, out, `skipped "C(C"`)
}

func TestTrainCommand_EmptyInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.smi")
	require.NoError(t, os.WriteFile(path, []byte("# nothing here\n"), 0o644))

	_, err := runCommand(t, "train", "-i", path, "-f", filepath.Join(t.TempDir(), "m.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no molecules")
}

func TestScoreCommand_WithTrainedModel(t *testing.T) {
	corpus := writeCorpusFile(t)
	modelPath := filepath.Join(t.TempDir(), "model.json")
	_, err := runCommand(t, "train", "-i", corpus, "-f", modelPath)
	require.NoError(t, err)

	out, err := runCommand(t, "score", "--model-file", modelPath, "CCO", "CCN")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "CCO\t"))
	assert.NotContains(t, out, "failed")
}

func TestScoreCommand_Pretrained(t *testing.T) {
	out, err := runCommand(t, "score", "-m", "MolLL", "-r", "1", "CCO")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "CCO\t"))
}

func TestScoreCommand_JSONOutput(t *testing.T) {
	out, err := runCommand(t, "-o", "json", "score", "CCO", "C(C")
	require.NoError(t, err)

	var results []scoredMolecule
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.NotNil(t, results[0].Score)
	assert.Nil(t, results[1].Score)
}

func TestScoreCommand_KindMismatch(t *testing.T) {
	corpus := writeCorpusFile(t)
	modelPath := filepath.Join(t.TempDir(), "model.json")
	_, err := runCommand(t, "train", "-m", "AtomLL", "-i", corpus, "-f", modelPath)
	require.NoError(t, err)

	_, err = runCommand(t, "score", "-m", "MolLL", "--model-file", modelPath, "CCO")
	require.Error(t, err)
}

func TestScoreCommand_NoInput(t *testing.T) {
	_, err := runCommand(t, "score")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no molecules")
}

func TestRootCommand_UnknownModelKind(t *testing.T) {
	_, err := runCommand(t, "score", "-m", "BondLL", "CCO")
	require.Error(t, err)
}
