// Package fingerprint converts molecules into discrete fingerprint keys for
// frequency-based likelihood scoring.  Keys are Morgan-style circular
// environment hashes: every atom contributes one key per radius level, and
// atoms sharing an identical local environment collapse onto the same key
// with a multiplicity count.
//
// The extractor here works from a simplified linear reading of the SMILES
// string.  A production deployment that needs exact chemistry can implement
// the Extractor interface on top of a full cheminformatics toolkit; the
// likelihood models are agnostic to how keys are produced.
package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/turtacn/MolScore/pkg/errors"
	"github.com/turtacn/MolScore/pkg/types/molecule"
)

// KeySet maps a fingerprint key to its multiplicity: the number of atoms in
// the molecule whose environment hashed to that key.  An empty KeySet is a
// valid result for a molecule with no extractable features.
type KeySet map[uint64]int

// TotalAtoms returns the summed multiplicity over all keys.
func (ks KeySet) TotalAtoms() int {
	n := 0
	for _, mult := range ks {
		n += mult
	}
	return n
}

// Extractor is the key-extraction contract consumed by the likelihood
// models.  Implementations must be deterministic: the same molecule always
// yields the same KeySet.
type Extractor interface {
	// Keys returns the fingerprint keys of mol with per-atom multiplicities.
	// Malformed molecules yield an error classified as invalid input.
	Keys(mol molecule.Molecule) (KeySet, error)

	// Radius reports the environment radius the extractor was built with.
	// It is persisted alongside trained statistics because keys from
	// different radii are not comparable.
	Radius() int
}

// MorganExtractor hashes each atom's neighborhood at every radius level from
// 0 up to the configured radius.
type MorganExtractor struct {
	radius int
}

// NewMorganExtractor constructs a MorganExtractor.  Negative radii are
// clamped to the default of 1.
func NewMorganExtractor(radius int) *MorganExtractor {
	if radius < 0 {
		radius = 1
	}
	return &MorganExtractor{radius: radius}
}

func (e *MorganExtractor) Radius() int { return e.radius }

// Keys implements Extractor.
func (e *MorganExtractor) Keys(mol molecule.Molecule) (KeySet, error) {
	if err := mol.Validate(); err != nil {
		return nil, err
	}

	atoms, err := parseAtoms(mol.SMILES)
	if err != nil {
		return nil, err
	}
	if len(atoms) == 0 {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidSMILES, "no atoms found in SMILES").
			WithDetail(mol.SMILES)
	}

	keys := make(KeySet)
	for i := range atoms {
		for r := 0; r <= e.radius; r++ {
			keys[hashEnvironment(atoms, i, r)]++
		}
	}
	return keys, nil
}

// hashEnvironment hashes the environment of atom i at the given radius: the
// window of atom symbols from i-r to i+r in chain order.  The window is the
// sole hash input, so chemically identical environments anywhere in the
// molecule map to the same key.
func hashEnvironment(atoms []string, i, radius int) uint64 {
	lo := i - radius
	if lo < 0 {
		lo = 0
	}
	hi := i + radius + 1
	if hi > len(atoms) {
		hi = len(atoms)
	}
	desc := fmt.Sprintf("%d|%s", radius, strings.Join(atoms[lo:hi], "-"))
	sum := sha256.Sum256([]byte(desc))
	return binary.BigEndian.Uint64(sum[:8])
}

// twoLetterElements covers the organic-subset elements written with two
// characters in SMILES outside brackets.
var twoLetterElements = map[string]bool{"Cl": true, "Br": true}

// parseAtoms extracts the atom symbol sequence from a SMILES string.
// Bracket atoms reduce to their element symbol; aromatic lowercase atoms are
// uppercased so "c1ccccc1" and "C1CCCCC1" share symbols at radius 0 only
// through their ring context.  Bonds, branches, and ring-closure digits are
// skipped.
func parseAtoms(smiles string) ([]string, error) {
	var atoms []string
	runes := []rune(smiles)

	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '[':
			end := i + 1
			for end < len(runes) && runes[end] != ']' {
				end++
			}
			if end >= len(runes) {
				return nil, errors.New(errors.ErrCodeMoleculeInvalidSMILES, "unterminated bracket atom").
					WithDetail(smiles)
			}
			sym := bracketElement(string(runes[i+1 : end]))
			if sym == "" {
				return nil, errors.New(errors.ErrCodeMoleculeInvalidSMILES, "empty bracket atom").
					WithDetail(smiles)
			}
			atoms = append(atoms, sym)
			i = end
		case ch >= 'A' && ch <= 'Z':
			sym := string(ch)
			if i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' {
				if twoLetterElements[sym+string(runes[i+1])] {
					sym += string(runes[i+1])
					i++
				}
			}
			atoms = append(atoms, sym)
		case ch >= 'a' && ch <= 'z':
			// Aromatic atom; normalize to the element symbol.
			atoms = append(atoms, strings.ToUpper(string(ch)))
		default:
			// Bond symbols, branch parentheses, ring closures, charges.
		}
	}
	return atoms, nil
}

// bracketElement extracts the element symbol from bracket-atom contents such
// as "NH2+", "13CH4", or "nH".
func bracketElement(content string) string {
	// Skip a leading isotope number.
	i := 0
	for i < len(content) && content[i] >= '0' && content[i] <= '9' {
		i++
	}
	if i >= len(content) {
		return ""
	}

	ch := content[i]
	switch {
	case ch >= 'A' && ch <= 'Z':
		sym := string(ch)
		if i+1 < len(content) && content[i+1] >= 'a' && content[i+1] <= 'z' {
			sym += string(content[i+1])
		}
		return sym
	case ch >= 'a' && ch <= 'z':
		return strings.ToUpper(string(ch))
	default:
		return ""
	}
}
