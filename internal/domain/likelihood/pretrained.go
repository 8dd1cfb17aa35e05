package likelihood

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/turtacn/MolScore/pkg/errors"
)

//go:embed data/*.json
var pretrainedFS embed.FS

// Pretrained radii available for the bundled reference models.
const (
	MinPretrainedRadius = 1
	MaxPretrainedRadius = 3
)

// PretrainedAtomLL returns a fresh AtomLL estimator loaded from the bundled
// reference corpus statistics at the given radius (1 to 3).  Every call
// constructs a new instance, so callers may retrain or mutate the result
// without affecting other users.
func PretrainedAtomLL(radius int) (*AtomLL, error) {
	m, err := loadPretrained(KindAtomLL, radius)
	if err != nil {
		return nil, err
	}
	return m.(*AtomLL), nil
}

// PretrainedMolLL is the MolLL counterpart of PretrainedAtomLL.
func PretrainedMolLL(radius int) (*MolLL, error) {
	m, err := loadPretrained(KindMolLL, radius)
	if err != nil {
		return nil, err
	}
	return m.(*MolLL), nil
}

// Pretrained dispatches on kind, for callers that select the model family at
// runtime.
func Pretrained(kind ModelKind, radius int) (Model, error) {
	return loadPretrained(kind, radius)
}

func loadPretrained(kind ModelKind, radius int) (Model, error) {
	if radius < MinPretrainedRadius || radius > MaxPretrainedRadius {
		return nil, errors.Newf(errors.ErrCodeModelNotFound,
			"no bundled %s model for radius %d (available: %d to %d)",
			kind, radius, MinPretrainedRadius, MaxPretrainedRadius)
	}

	var name string
	switch kind {
	case KindAtomLL:
		name = fmt.Sprintf("data/atomll_radius_%d.json", radius)
	case KindMolLL:
		name = fmt.Sprintf("data/molll_radius_%d.json", radius)
	default:
		return nil, errors.Newf(errors.ErrCodeModelNotFound,
			"no bundled models for kind %q", kind)
	}

	raw, err := pretrainedFS.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeModelNotFound,
			fmt.Sprintf("reading bundled model %s", name))
	}
	return LoadModelKind(bytes.NewReader(raw), kind)
}
