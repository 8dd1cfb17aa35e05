// Package scoring is the application service tying the likelihood models to
// the corpus store, model storage, score cache, and event stream.
package scoring

import (
	"bytes"
	"context"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/turtacn/MolScore/internal/domain/likelihood"
	"github.com/turtacn/MolScore/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/MolScore/internal/infrastructure/database/redis"
	"github.com/turtacn/MolScore/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/prometheus"
	minioStore "github.com/turtacn/MolScore/internal/infrastructure/storage/minio"
	"github.com/turtacn/MolScore/pkg/errors"
	"github.com/turtacn/MolScore/pkg/types/molecule"
)

// corpusPageSize bounds memory during training over large corpora.
const corpusPageSize = 5000

// Service is the scoring application surface consumed by the HTTP and CLI
// layers.
type Service interface {
	// Train rebuilds the model for kind from the stored corpus, persists the
	// document, invalidates cached scores, and announces the new version.
	Train(ctx context.Context, input *TrainInput) (*TrainResult, error)

	// Score returns the log-likelihood of one molecule under the active
	// model for kind.
	Score(ctx context.Context, kind likelihood.ModelKind, mol molecule.Molecule) (*ScoreResult, error)

	// ScoreBatch scores molecules in order; failed items yield NaN.
	ScoreBatch(ctx context.Context, kind likelihood.ModelKind, mols []molecule.Molecule) (*BatchResult, error)

	// AddCorpus appends molecules to the training corpus without retraining.
	AddCorpus(ctx context.Context, mols []molecule.Molecule) (int64, error)

	// ModelInfo describes the active model for kind.
	ModelInfo(ctx context.Context, kind likelihood.ModelKind) (*ModelInfo, error)
}

// TrainInput selects what to train.
type TrainInput struct {
	Kind   likelihood.ModelKind
	Params likelihood.Params
}

// TrainResult reports a completed training pass.
type TrainResult struct {
	Kind              likelihood.ModelKind `json:"model_kind"`
	Radius            int                  `json:"radius"`
	MoleculesTotal    int                  `json:"molecules_total"`
	MoleculesAccepted int                  `json:"molecules_accepted"`
	VocabularySize    int                  `json:"vocabulary_size"`
	ModelDigest       string               `json:"model_digest"`
	Elapsed           time.Duration        `json:"-"`
}

// ScoreResult is one served score.
type ScoreResult struct {
	SMILES      string  `json:"smiles"`
	Score       float64 `json:"score"`
	ModelDigest string  `json:"model_digest"`
	Cached      bool    `json:"cached"`
}

// BatchResult is an order-preserving batch of scores; failed inputs carry
// NaN in Scores and an explanation in Failures.
type BatchResult struct {
	Scores      []float64      `json:"scores"`
	Failures    map[int]string `json:"failures,omitempty"`
	ModelDigest string         `json:"model_digest"`
}

// ModelInfo describes an active model.
type ModelInfo struct {
	Kind           likelihood.ModelKind `json:"model_kind"`
	Params         likelihood.Params    `json:"params"`
	VocabularySize int                  `json:"vocabulary_size"`
	ModelDigest    string               `json:"model_digest"`
	TrainedAt      *time.Time           `json:"trained_at,omitempty"`
	Pretrained     bool                 `json:"pretrained"`
}

// activeModel pairs a loaded model with the digest identifying its version.
type activeModel struct {
	model  likelihood.Model
	digest string
}

type service struct {
	corpus   repositories.CorpusRepository
	store    minioStore.ModelStore
	cache    redis.ScoreCache
	producer kafka.Producer
	metrics  *prometheus.Metrics
	logger   logging.Logger

	defaults likelihood.Params

	mu     sync.RWMutex
	active map[likelihood.ModelKind]*activeModel
}

// Option configures the Service.
type Option func(*service)

// WithCache enables score caching.
func WithCache(cache redis.ScoreCache) Option {
	return func(s *service) { s.cache = cache }
}

// WithProducer enables event publication.
func WithProducer(p kafka.Producer) Option {
	return func(s *service) { s.producer = p }
}

// WithMetrics enables metric recording.
func WithMetrics(m *prometheus.Metrics) Option {
	return func(s *service) { s.metrics = m }
}

// WithDefaultParams overrides the model defaults used when a TrainInput
// leaves parameters unset.
func WithDefaultParams(p likelihood.Params) Option {
	return func(s *service) { s.defaults = p }
}

// NewService wires the scoring service.  corpus and store are required;
// cache, producer, and metrics are optional and degrade to direct
// computation, no events, and no recording.
func NewService(corpus repositories.CorpusRepository, store minioStore.ModelStore, log logging.Logger, opts ...Option) Service {
	s := &service{
		corpus:   corpus,
		store:    store,
		producer: kafka.NopProducer{},
		logger:   log,
		defaults: likelihood.DefaultParams(),
		active:   make(map[likelihood.ModelKind]*activeModel),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ─────────────────────────────────────────────────────────────────────────────
// Training
// ─────────────────────────────────────────────────────────────────────────────

func (s *service) Train(ctx context.Context, input *TrainInput) (*TrainResult, error) {
	start := time.Now()
	params := s.resolveParams(input.Params)

	model, err := s.newModel(input.Kind, params)
	if err != nil {
		s.observeTraining(input.Kind, prometheus.ResultInvalid, start, nil)
		return nil, err
	}

	report, err := s.trainOverCorpus(ctx, model)
	if err != nil {
		s.observeTraining(input.Kind, prometheus.ResultError, start, nil)
		return nil, err
	}

	var buf bytes.Buffer
	if err := model.Save(&buf); err != nil {
		s.observeTraining(input.Kind, prometheus.ResultError, start, nil)
		return nil, err
	}

	previousDigest := s.activeDigest(input.Kind)
	digest, err := s.store.Save(ctx, string(input.Kind), params.Radius, buf.Bytes())
	if err != nil {
		s.observeTraining(input.Kind, prometheus.ResultError, start, nil)
		return nil, err
	}

	s.mu.Lock()
	s.active[input.Kind] = &activeModel{model: model, digest: digest}
	s.mu.Unlock()

	if err := s.corpus.RecordTrainingRun(ctx, &repositories.TrainingRun{
		ModelKind:         string(input.Kind),
		Radius:            params.Radius,
		MoleculesTotal:    report.MoleculesTotal,
		MoleculesAccepted: report.MoleculesAccepted,
		VocabularySize:    report.VocabularySize,
		ModelDigest:       digest,
	}); err != nil {
		// The model is trained and stored; a missing history row is not
		// worth failing the run over.
		s.logger.Warn("failed to record training run", logging.Err(err))
	}

	if s.cache != nil && previousDigest != "" {
		if removed, err := s.cache.InvalidateModel(ctx, previousDigest); err != nil {
			s.logger.Warn("score cache invalidation failed", logging.Err(err))
		} else {
			s.logger.Info("score cache invalidated",
				logging.String("model_kind", string(input.Kind)),
				logging.Int64("removed", removed))
		}
	}

	if err := s.producer.PublishModelTrained(ctx, &kafka.ModelTrainedEvent{
		ModelKind:         string(input.Kind),
		Radius:            params.Radius,
		MoleculesAccepted: report.MoleculesAccepted,
		VocabularySize:    report.VocabularySize,
		ModelDigest:       digest,
		PreviousDigest:    previousDigest,
	}); err != nil {
		s.logger.Warn("failed to publish model trained event", logging.Err(err))
	}

	s.observeTraining(input.Kind, prometheus.ResultOK, start, report)
	s.logger.Info("model trained",
		logging.String("model_kind", string(input.Kind)),
		logging.Int("radius", params.Radius),
		logging.Int("molecules_accepted", report.MoleculesAccepted),
		logging.Int("vocabulary_size", report.VocabularySize),
		logging.Duration("elapsed", time.Since(start)))

	return &TrainResult{
		Kind:              input.Kind,
		Radius:            params.Radius,
		MoleculesTotal:    report.MoleculesTotal,
		MoleculesAccepted: report.MoleculesAccepted,
		VocabularySize:    report.VocabularySize,
		ModelDigest:       digest,
		Elapsed:           time.Since(start),
	}, nil
}

func (s *service) resolveParams(p likelihood.Params) likelihood.Params {
	if p == (likelihood.Params{}) {
		return s.defaults
	}
	return p
}

func (s *service) newModel(kind likelihood.ModelKind, params likelihood.Params) (likelihood.Model, error) {
	switch kind {
	case likelihood.KindAtomLL:
		return likelihood.NewAtomLL(params)
	case likelihood.KindMolLL:
		return likelihood.NewMolLL(params)
	default:
		return nil, errors.Newf(errors.ErrCodeModelKindUnsupported,
			"cannot train model kind %q", kind)
	}
}

func (s *service) trainOverCorpus(ctx context.Context, model likelihood.Model) (*likelihood.AnalysisReport, error) {
	total := &likelihood.AnalysisReport{}
	offset := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "training cancelled")
		}

		page, err := s.corpus.ListMolecules(ctx, corpusPageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		report, err := model.AnalyzeDataset(page)
		if err != nil {
			return nil, err
		}
		total.MoleculesTotal += report.MoleculesTotal
		total.MoleculesAccepted += report.MoleculesAccepted
		total.KeysAccumulated += report.KeysAccumulated
		total.VocabularySize = report.VocabularySize
		total.Skipped = append(total.Skipped, report.Skipped...)

		offset += len(page)
		if len(page) < corpusPageSize {
			break
		}
	}

	if total.MoleculesAccepted == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "training corpus is empty")
	}
	return total, nil
}

func (s *service) observeTraining(kind likelihood.ModelKind, result string, start time.Time, report *likelihood.AnalysisReport) {
	if s.metrics == nil {
		return
	}
	vocab, accepted := 0, 0
	if report != nil {
		vocab, accepted = report.VocabularySize, report.MoleculesAccepted
	}
	s.metrics.ObserveTraining(string(kind), result, time.Since(start), vocab, accepted)
}

// ─────────────────────────────────────────────────────────────────────────────
// Scoring
// ─────────────────────────────────────────────────────────────────────────────

func (s *service) Score(ctx context.Context, kind likelihood.ModelKind, mol molecule.Molecule) (*ScoreResult, error) {
	start := time.Now()

	active, err := s.activeFor(ctx, kind)
	if err != nil {
		s.observeScore(kind, prometheus.ResultError, start)
		return nil, err
	}

	result := &ScoreResult{SMILES: mol.SMILES, ModelDigest: active.digest}

	if s.cache == nil {
		score, err := active.model.CalculateLL(mol)
		if err != nil {
			s.observeScore(kind, scoreFailureResult(err), start)
			return nil, err
		}
		result.Score = score
	} else {
		key := redis.ScoreKey(active.digest, mol.SMILES)
		if cached, cacheErr := s.cache.Get(ctx, key); cacheErr == nil {
			result.Score, result.Cached = cached, true
			if s.metrics != nil {
				s.metrics.ScoreCacheHits.WithLabelValues(string(kind)).Inc()
			}
		} else {
			if s.metrics != nil {
				s.metrics.ScoreCacheMisses.WithLabelValues(string(kind)).Inc()
			}
			score, err := s.cache.GetOrCompute(ctx, key, func(context.Context) (float64, error) {
				return active.model.CalculateLL(mol)
			})
			if err != nil {
				s.observeScore(kind, scoreFailureResult(err), start)
				return nil, err
			}
			result.Score = score
		}
	}

	if err := s.producer.PublishMoleculeScored(ctx, &kafka.MoleculeScoredEvent{
		ModelKind:   string(kind),
		ModelDigest: active.digest,
		SMILES:      mol.SMILES,
		Score:       result.Score,
		Cached:      result.Cached,
	}); err != nil {
		s.logger.Warn("failed to publish molecule scored event", logging.Err(err))
	}

	s.observeScore(kind, prometheus.ResultOK, start)
	return result, nil
}

func (s *service) ScoreBatch(ctx context.Context, kind likelihood.ModelKind, mols []molecule.Molecule) (*BatchResult, error) {
	active, err := s.activeFor(ctx, kind)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{
		Scores:      make([]float64, len(mols)),
		ModelDigest: active.digest,
	}

	for i, mol := range mols {
		scored, err := s.Score(ctx, kind, mol)
		if err != nil {
			if errors.IsInvalidInput(err) {
				result.Scores[i] = math.NaN()
				if result.Failures == nil {
					result.Failures = make(map[int]string)
				}
				result.Failures[i] = err.Error()
				continue
			}
			return nil, err
		}
		result.Scores[i] = scored.Score
	}
	return result, nil
}

func (s *service) AddCorpus(ctx context.Context, mols []molecule.Molecule) (int64, error) {
	return s.corpus.AddMolecules(ctx, mols)
}

func (s *service) observeScore(kind likelihood.ModelKind, result string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveScore(string(kind), result, time.Since(start))
}

func scoreFailureResult(err error) string {
	if errors.IsInvalidInput(err) {
		return prometheus.ResultInvalid
	}
	return prometheus.ResultError
}

// ─────────────────────────────────────────────────────────────────────────────
// Model resolution
// ─────────────────────────────────────────────────────────────────────────────

// activeFor returns the in-memory model for kind, loading it from the model
// store on first use and falling back to the bundled pretrained model when
// no stored document exists.
func (s *service) activeFor(ctx context.Context, kind likelihood.ModelKind) (*activeModel, error) {
	s.mu.RLock()
	active, ok := s.active[kind]
	s.mu.RUnlock()
	if ok {
		return active, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if active, ok := s.active[kind]; ok {
		return active, nil
	}

	loaded, err := s.loadStored(ctx, kind)
	if err != nil {
		if !errors.IsCode(err, errors.ErrCodeModelNotFound) {
			return nil, err
		}
		loaded, err = s.loadPretrained(kind)
		if err != nil {
			return nil, err
		}
	}

	s.active[kind] = loaded
	return loaded, nil
}

func (s *service) loadStored(ctx context.Context, kind likelihood.ModelKind) (*activeModel, error) {
	data, err := s.store.Load(ctx, string(kind), s.defaults.Radius)
	if err != nil {
		return nil, err
	}

	model, err := likelihood.LoadModelKind(bytes.NewReader(data), kind)
	if err != nil {
		return nil, err
	}

	s.logger.Info("model loaded from store",
		logging.String("model_kind", string(kind)),
		logging.Int("radius", model.Params().Radius))
	return &activeModel{model: model, digest: minioStore.ContentDigest(data)}, nil
}

func (s *service) loadPretrained(kind likelihood.ModelKind) (*activeModel, error) {
	model, err := likelihood.Pretrained(kind, s.defaults.Radius)
	if err != nil {
		return nil, err
	}

	s.logger.Info("using bundled pretrained model",
		logging.String("model_kind", string(kind)),
		logging.Int("radius", s.defaults.Radius))
	return &activeModel{model: model, digest: pretrainedDigest(kind, s.defaults.Radius)}, nil
}

func pretrainedDigest(kind likelihood.ModelKind, radius int) string {
	return "pretrained-" + string(kind) + "-r" + strconv.Itoa(radius)
}

func (s *service) activeDigest(kind likelihood.ModelKind) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if active, ok := s.active[kind]; ok {
		return active.digest
	}
	return ""
}

func (s *service) ModelInfo(ctx context.Context, kind likelihood.ModelKind) (*ModelInfo, error) {
	active, err := s.activeFor(ctx, kind)
	if err != nil {
		return nil, err
	}

	info := &ModelInfo{
		Kind:        kind,
		Params:      active.model.Params(),
		ModelDigest: active.digest,
		Pretrained:  strings.HasPrefix(active.digest, "pretrained-"),
	}

	if run, err := s.corpus.LatestTrainingRun(ctx, string(kind)); err == nil {
		info.VocabularySize = run.VocabularySize
		info.TrainedAt = &run.CreatedAt
	} else if !errors.IsCode(err, errors.ErrCodeNotFound) {
		return nil, err
	}
	return info, nil
}
