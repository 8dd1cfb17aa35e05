// Package molecule defines the molecule data types shared across every layer
// of MolScore.  No domain logic lives here — only plain data types that are
// safe to import from any layer without creating circular dependencies.
package molecule

import (
	"strings"

	"github.com/turtacn/MolScore/pkg/errors"
)

// Molecule is the opaque molecule representation accepted by the scoring
// pipeline.  MolScore treats a molecule as a SMILES string plus optional
// metadata; all structural interpretation is delegated to the key extractor.
type Molecule struct {
	// SMILES is the canonical structure notation for the molecule.
	SMILES string `json:"smiles"`

	// Name is an optional human-readable identifier carried through
	// scoring results and corpus records.
	Name string `json:"name,omitempty"`
}

// New constructs a Molecule after validating its SMILES string.
func New(smiles string) (Molecule, error) {
	m := Molecule{SMILES: smiles}
	if err := m.Validate(); err != nil {
		return Molecule{}, err
	}
	return m, nil
}

// MustNew constructs a Molecule and panics on invalid SMILES.  Intended for
// tests and package-level fixtures only.
func MustNew(smiles string) Molecule {
	m, err := New(smiles)
	if err != nil {
		panic(err)
	}
	return m
}

// Validate performs the structural checks that can be made without a full
// SMILES parser: the string must be non-empty and its parentheses and
// brackets must balance.  Deeper validation happens during key extraction.
func (m Molecule) Validate() error {
	s := strings.TrimSpace(m.SMILES)
	if s == "" {
		return errors.New(errors.ErrCodeMoleculeEmpty, "SMILES string cannot be empty")
	}

	var parens, brackets int
	for _, ch := range s {
		switch ch {
		case '(':
			parens++
		case ')':
			parens--
		case '[':
			brackets++
		case ']':
			brackets--
		}
		if parens < 0 || brackets < 0 {
			return errors.New(errors.ErrCodeMoleculeInvalidSMILES, "unbalanced SMILES delimiters").
				WithDetail(m.SMILES)
		}
	}
	if parens != 0 || brackets != 0 {
		return errors.New(errors.ErrCodeMoleculeInvalidSMILES, "unbalanced SMILES delimiters").
			WithDetail(m.SMILES)
	}
	return nil
}

// FromSMILES converts a slice of SMILES strings into molecules without
// validating them; invalid entries surface later as per-item extraction
// failures, which is the behaviour dataset analysis expects.
func FromSMILES(smiles []string) []Molecule {
	mols := make([]Molecule, len(smiles))
	for i, s := range smiles {
		mols[i] = Molecule{SMILES: s}
	}
	return mols
}
