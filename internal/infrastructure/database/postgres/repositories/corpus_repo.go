// Package repositories holds the PostgreSQL repositories backing the
// training corpus and the training-run history.
package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/pkg/errors"
	"github.com/turtacn/MolScore/pkg/types/molecule"
)

// TrainingRun records one completed training pass over the corpus.
type TrainingRun struct {
	ID                uuid.UUID
	ModelKind         string
	Radius            int
	MoleculesTotal    int
	MoleculesAccepted int
	VocabularySize    int
	ModelDigest       string
	CreatedAt         time.Time
}

// CorpusRepository stores the reference molecules used for training and the
// history of training runs.
type CorpusRepository interface {
	// AddMolecules inserts molecules, skipping SMILES already present.
	// Returns the number of newly inserted rows.
	AddMolecules(ctx context.Context, mols []molecule.Molecule) (int64, error)

	// ListMolecules returns corpus molecules ordered by insertion time.
	ListMolecules(ctx context.Context, limit, offset int) ([]molecule.Molecule, error)

	// CountMolecules returns the corpus size.
	CountMolecules(ctx context.Context) (int64, error)

	// RecordTrainingRun persists a completed training pass.
	RecordTrainingRun(ctx context.Context, run *TrainingRun) error

	// LatestTrainingRun returns the most recent run for a model kind, or a
	// not-found error when the kind has never been trained.
	LatestTrainingRun(ctx context.Context, modelKind string) (*TrainingRun, error)
}

type corpusRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewCorpusRepository constructs the PostgreSQL CorpusRepository.
func NewCorpusRepository(pool *pgxpool.Pool, log logging.Logger) CorpusRepository {
	return &corpusRepository{pool: pool, logger: log}
}

func (r *corpusRepository) AddMolecules(ctx context.Context, mols []molecule.Molecule) (int64, error) {
	if len(mols) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, mol := range mols {
		batch.Queue(`
			INSERT INTO corpus_molecules (id, smiles, name)
			VALUES ($1, $2, $3)
			ON CONFLICT (smiles) DO NOTHING`,
			uuid.New(), mol.SMILES, mol.Name)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int64
	for range mols {
		tag, err := results.Exec()
		if err != nil {
			return inserted, errors.Wrap(err, errors.ErrCodeDatabaseError, "inserting corpus molecules")
		}
		inserted += tag.RowsAffected()
	}

	r.logger.Debug("corpus molecules added",
		logging.Int("submitted", len(mols)),
		logging.Int64("inserted", inserted))
	return inserted, nil
}

func (r *corpusRepository) ListMolecules(ctx context.Context, limit, offset int) ([]molecule.Molecule, error) {
	if limit <= 0 {
		limit = 1000
	}

	rows, err := r.pool.Query(ctx, `
		SELECT smiles, name
		FROM corpus_molecules
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "listing corpus molecules")
	}
	defer rows.Close()

	var mols []molecule.Molecule
	for rows.Next() {
		var mol molecule.Molecule
		if err := rows.Scan(&mol.SMILES, &mol.Name); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scanning corpus molecule")
		}
		mols = append(mols, mol)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterating corpus molecules")
	}
	return mols, nil
}

func (r *corpusRepository) CountMolecules(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM corpus_molecules`).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "counting corpus molecules")
	}
	return count, nil
}

func (r *corpusRepository) RecordTrainingRun(ctx context.Context, run *TrainingRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO training_runs (
			id, model_kind, radius, molecules_total, molecules_accepted,
			vocabulary_size, model_digest, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		run.ID, run.ModelKind, run.Radius, run.MoleculesTotal, run.MoleculesAccepted,
		run.VocabularySize, run.ModelDigest, run.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "recording training run")
	}
	return nil
}

func (r *corpusRepository) LatestTrainingRun(ctx context.Context, modelKind string) (*TrainingRun, error) {
	run := &TrainingRun{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, model_kind, radius, molecules_total, molecules_accepted,
		       vocabulary_size, model_digest, created_at
		FROM training_runs
		WHERE model_kind = $1
		ORDER BY created_at DESC
		LIMIT 1`, modelKind).Scan(
		&run.ID, &run.ModelKind, &run.Radius, &run.MoleculesTotal,
		&run.MoleculesAccepted, &run.VocabularySize, &run.ModelDigest, &run.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("no training run recorded for model kind " + modelKind)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "loading latest training run")
	}
	return run, nil
}
