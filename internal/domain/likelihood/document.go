package likelihood

import (
	"encoding/json"
	"io"

	"github.com/turtacn/MolScore/pkg/errors"
)

// FormatVersion is the current persisted-document format version.  Loaders
// reject any other version.
const FormatVersion = 1

// smootherPolicyLaplace names the only smoothing policy currently persisted.
const smootherPolicyLaplace = "laplace"

// smootherDocument is the persisted smoother configuration.
type smootherDocument struct {
	Policy            string  `json:"policy"`
	PseudoCount       float64 `json:"pseudo_count"`
	EstimatedKeyspace float64 `json:"estimated_keyspace"`
}

// tableDocument is the persisted frequency table.  Total and VocabularySize
// are stored redundantly and cross-checked against Counts on load, catching
// truncated or hand-edited files.
type tableDocument struct {
	Total          uint64         `json:"total"`
	VocabularySize int            `json:"vocabulary_size"`
	Counts         map[Key]uint64 `json:"counts"`
}

// Document is the persisted model envelope.  Radius and Alpha are pointers
// so that a document missing them is distinguishable from one that sets
// their zero values; all pointer fields are required for fingerprint models.
//
// Payload carries kind-specific state for model families that do not use the
// frequency-table representation.  PropLL documents round-trip through it.
type Document struct {
	FormatVersion  int               `json:"format_version"`
	ModelKind      ModelKind         `json:"model_kind"`
	Radius         *int              `json:"radius,omitempty"`
	Alpha          *float64          `json:"alpha,omitempty"`
	Smoother       *smootherDocument `json:"smoother,omitempty"`
	FrequencyTable *tableDocument    `json:"frequency_table,omitempty"`
	Payload        json.RawMessage   `json:"payload,omitempty"`
}

// writeDocument serializes doc as indented JSON.  Map keys marshal in sorted
// order, so saving the same model twice produces byte-identical output.
func writeDocument(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding model document")
	}
	return nil
}

// ReadDocument decodes and validates a persisted model document without
// instantiating a model.  Callers that only need metadata (kind, radius)
// use it directly; LoadModel builds on it.
func ReadDocument(r io.Reader) (*Document, error) {
	doc := &Document{}
	if err := json.NewDecoder(r).Decode(doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCorruptDocument, "decoding model document")
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Document) validate() error {
	if d.FormatVersion != FormatVersion {
		return errors.Newf(errors.ErrCodeFormatVersionMismatch,
			"document format version %d, want %d", d.FormatVersion, FormatVersion)
	}
	if _, err := ParseModelKind(string(d.ModelKind)); err != nil {
		return err
	}
	if d.ModelKind == KindPropLL {
		// Payload-backed kinds validate their own payload on instantiation.
		return nil
	}

	if d.Radius == nil || d.Alpha == nil || d.Smoother == nil || d.FrequencyTable == nil {
		return errors.New(errors.ErrCodeCorruptDocument,
			"document is missing one of the required fields radius, alpha, smoother, frequency_table")
	}
	if d.Smoother.Policy != smootherPolicyLaplace {
		return errors.Newf(errors.ErrCodeCorruptDocument,
			"unknown smoother policy %q", d.Smoother.Policy)
	}

	var total uint64
	for _, n := range d.FrequencyTable.Counts {
		total += n
	}
	if total != d.FrequencyTable.Total {
		return errors.Newf(errors.ErrCodeCorruptDocument,
			"frequency table total %d does not match summed counts %d",
			d.FrequencyTable.Total, total)
	}
	if len(d.FrequencyTable.Counts) != d.FrequencyTable.VocabularySize {
		return errors.Newf(errors.ErrCodeCorruptDocument,
			"frequency table vocabulary size %d does not match %d stored keys",
			d.FrequencyTable.VocabularySize, len(d.FrequencyTable.Counts))
	}
	return nil
}

// params reconstructs the model parameters from a validated document.
func (d *Document) params() Params {
	return Params{
		Radius:            *d.Radius,
		PseudoCount:       d.Smoother.PseudoCount,
		EstimatedKeyspace: d.Smoother.EstimatedKeyspace,
		Alpha:             *d.Alpha,
	}
}

// LoadModel reads a persisted document and instantiates the model kind it
// declares.  The returned model scores identically to the one that was
// saved.
func LoadModel(r io.Reader) (Model, error) {
	doc, err := ReadDocument(r)
	if err != nil {
		return nil, err
	}

	switch doc.ModelKind {
	case KindAtomLL:
		m, err := NewAtomLL(doc.params())
		if err != nil {
			return nil, err
		}
		m.restore(doc.FrequencyTable.Counts)
		return m, nil
	case KindMolLL:
		m, err := NewMolLL(doc.params())
		if err != nil {
			return nil, err
		}
		if err := m.restore(doc.FrequencyTable.Counts); err != nil {
			return nil, err
		}
		return m, nil
	case KindPropLL:
		return nil, errors.Newf(errors.ErrCodeNotImplemented,
			"model kind %s cannot be instantiated for scoring", KindPropLL)
	default:
		return nil, errors.Newf(errors.ErrCodeModelKindUnsupported,
			"unsupported model kind %q", doc.ModelKind)
	}
}

// LoadModelKind loads a model and verifies it is of the expected kind,
// guarding call sites that hold a fixed scoring contract.
func LoadModelKind(r io.Reader, want ModelKind) (Model, error) {
	m, err := LoadModel(r)
	if err != nil {
		return nil, err
	}
	if m.Kind() != want {
		return nil, errors.Newf(errors.ErrCodeModelKindMismatch,
			"document holds a %s model, want %s", m.Kind(), want)
	}
	return m, nil
}
