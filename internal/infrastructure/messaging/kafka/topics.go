// Package kafka publishes and consumes the scoring pipeline's domain events.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/MolScore/pkg/errors"
)

// Topic names.  Versioned payloads travel as JSON; consumers tolerate
// unknown fields so producers can extend events without coordination.
const (
	// TopicModelTrained announces that a model slot was retrained and its
	// stored document replaced.  Workers react by invalidating cached
	// scores for the previous model version.
	TopicModelTrained = "molscore.model.trained"

	// TopicMoleculeScored records every served score for downstream
	// analytics.
	TopicMoleculeScored = "molscore.molecule.scored"
)

// ModelTrainedEvent is the payload on TopicModelTrained.
type ModelTrainedEvent struct {
	EventID           uuid.UUID `json:"event_id"`
	ModelKind         string    `json:"model_kind"`
	Radius            int       `json:"radius"`
	MoleculesAccepted int       `json:"molecules_accepted"`
	VocabularySize    int       `json:"vocabulary_size"`
	ModelDigest       string    `json:"model_digest"`
	PreviousDigest    string    `json:"previous_digest,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// MoleculeScoredEvent is the payload on TopicMoleculeScored.
type MoleculeScoredEvent struct {
	EventID     uuid.UUID `json:"event_id"`
	ModelKind   string    `json:"model_kind"`
	ModelDigest string    `json:"model_digest"`
	SMILES      string    `json:"smiles"`
	Score       float64   `json:"score"`
	Cached      bool      `json:"cached"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// DecodeModelTrained parses a TopicModelTrained payload.
func DecodeModelTrained(data []byte) (*ModelTrainedEvent, error) {
	ev := &ModelTrainedEvent{}
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decoding model trained event")
	}
	return ev, nil
}

// DecodeMoleculeScored parses a TopicMoleculeScored payload.
func DecodeMoleculeScored(data []byte) (*MoleculeScoredEvent, error) {
	ev := &MoleculeScoredEvent{}
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decoding molecule scored event")
	}
	return ev, nil
}
