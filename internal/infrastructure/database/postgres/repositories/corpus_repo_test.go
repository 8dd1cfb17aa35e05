//go:build integration

// Integration tests for the corpus repository.  Requires Docker; gated
// behind the "integration" build tag.
package repositories_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/MolScore/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/pkg/errors"
	"github.com/turtacn/MolScore/pkg/types/molecule"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "molscore_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/molscore_test?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	applySchema(t, pool)
	return pool
}

func applySchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ddl := `
	CREATE TABLE IF NOT EXISTS corpus_molecules (
		id         UUID PRIMARY KEY,
		smiles     TEXT NOT NULL UNIQUE,
		name       TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS training_runs (
		id                 UUID PRIMARY KEY,
		model_kind         TEXT NOT NULL,
		radius             INT NOT NULL,
		molecules_total    INT NOT NULL,
		molecules_accepted INT NOT NULL,
		vocabulary_size    INT NOT NULL,
		model_digest       TEXT NOT NULL DEFAULT '',
		created_at         TIMESTAMPTZ NOT NULL
	);`
	_, err := pool.Exec(context.Background(), ddl)
	require.NoError(t, err)
}

func TestCorpusRepository_AddAndList(t *testing.T) {
	pool := startPostgres(t)
	repo := repositories.NewCorpusRepository(pool, logging.NewNopLogger())
	ctx := context.Background()

	inserted, err := repo.AddMolecules(ctx, molecule.FromSMILES([]string{"CCO", "CCC", "c1ccccc1"}))
	require.NoError(t, err)
	assert.Equal(t, int64(3), inserted)

	// Duplicate SMILES are skipped, not errors.
	inserted, err = repo.AddMolecules(ctx, molecule.FromSMILES([]string{"CCO", "CCN"}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted)

	count, err := repo.CountMolecules(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	mols, err := repo.ListMolecules(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, mols, 4)

	page, err := repo.ListMolecules(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestCorpusRepository_TrainingRuns(t *testing.T) {
	pool := startPostgres(t)
	repo := repositories.NewCorpusRepository(pool, logging.NewNopLogger())
	ctx := context.Background()

	_, err := repo.LatestTrainingRun(ctx, "AtomLL")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))

	first := &repositories.TrainingRun{
		ModelKind:         "AtomLL",
		Radius:            1,
		MoleculesTotal:    100,
		MoleculesAccepted: 98,
		VocabularySize:    421,
		ModelDigest:       "digest-1",
		CreatedAt:         time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, repo.RecordTrainingRun(ctx, first))
	assert.NotEqual(t, uuid.Nil, first.ID)

	second := &repositories.TrainingRun{
		ModelKind:         "AtomLL",
		Radius:            1,
		MoleculesTotal:    150,
		MoleculesAccepted: 150,
		VocabularySize:    560,
		ModelDigest:       "digest-2",
	}
	require.NoError(t, repo.RecordTrainingRun(ctx, second))

	latest, err := repo.LatestTrainingRun(ctx, "AtomLL")
	require.NoError(t, err)
	assert.Equal(t, "digest-2", latest.ModelDigest)
	assert.Equal(t, 150, latest.MoleculesAccepted)
}
