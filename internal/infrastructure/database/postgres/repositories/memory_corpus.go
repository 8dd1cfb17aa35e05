package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/MolScore/pkg/errors"
	"github.com/turtacn/MolScore/pkg/types/molecule"
)

// memoryCorpusRepository is the dependency-free CorpusRepository backing local
// serve mode.  Semantics mirror the postgres implementation: duplicate SMILES
// are skipped, listing is insertion-ordered, training history is append-only.
type memoryCorpusRepository struct {
	mu   sync.RWMutex
	mols []molecule.Molecule
	seen map[string]bool
	runs []TrainingRun
}

// NewMemoryCorpusRepository returns an in-process corpus store.
func NewMemoryCorpusRepository() CorpusRepository {
	return &memoryCorpusRepository{seen: make(map[string]bool)}
}

func (r *memoryCorpusRepository) AddMolecules(_ context.Context, mols []molecule.Molecule) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var added int64
	for _, mol := range mols {
		if r.seen[mol.SMILES] {
			continue
		}
		r.seen[mol.SMILES] = true
		r.mols = append(r.mols, mol)
		added++
	}
	return added, nil
}

func (r *memoryCorpusRepository) ListMolecules(_ context.Context, limit, offset int) ([]molecule.Molecule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if offset >= len(r.mols) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.mols) {
		end = len(r.mols)
	}
	page := make([]molecule.Molecule, end-offset)
	copy(page, r.mols[offset:end])
	return page, nil
}

func (r *memoryCorpusRepository) CountMolecules(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.mols)), nil
}

func (r *memoryCorpusRepository) RecordTrainingRun(_ context.Context, run *TrainingRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	r.runs = append(r.runs, *run)
	return nil
}

func (r *memoryCorpusRepository) LatestTrainingRun(_ context.Context, modelKind string) (*TrainingRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.runs) - 1; i >= 0; i-- {
		if r.runs[i].ModelKind == modelKind {
			run := r.runs[i]
			return &run, nil
		}
	}
	return nil, errors.NotFound("no training runs recorded").WithDetail(modelKind)
}
