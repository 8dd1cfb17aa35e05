package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/MolScore/pkg/errors"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_PublishModelTrained(t *testing.T) {
	writer := &recordingWriter{}
	p := &producer{writer: writer, logger: logging.NewNopLogger()}

	err := p.PublishModelTrained(context.Background(), &ModelTrainedEvent{
		ModelKind:   "AtomLL",
		Radius:      1,
		ModelDigest: "abc",
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, TopicModelTrained, msg.Topic)
	assert.Equal(t, []byte("AtomLL"), msg.Key)

	ev, err := DecodeModelTrained(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, "AtomLL", ev.ModelKind)
	assert.Equal(t, "abc", ev.ModelDigest)
	assert.NotEqual(t, uuid.Nil, ev.EventID)
	assert.WithinDuration(t, time.Now().UTC(), ev.OccurredAt, time.Minute)
}

func TestProducer_PublishMoleculeScored(t *testing.T) {
	writer := &recordingWriter{}
	p := &producer{writer: writer, logger: logging.NewNopLogger()}

	err := p.PublishMoleculeScored(context.Background(), &MoleculeScoredEvent{
		ModelKind: "MolLL",
		SMILES:    "CCO",
		Score:     -8.25,
		Cached:    true,
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	ev, err := DecodeMoleculeScored(writer.messages[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "CCO", ev.SMILES)
	assert.Equal(t, -8.25, ev.Score)
	assert.True(t, ev.Cached)
}

func TestProducer_WriteFailure(t *testing.T) {
	writer := &recordingWriter{err: pkgerrors.Internal("broker down")}
	p := &producer{writer: writer, logger: logging.NewNopLogger()}

	err := p.PublishModelTrained(context.Background(), &ModelTrainedEvent{ModelKind: "AtomLL"})
	assert.Error(t, err)
}

func TestProducer_Close(t *testing.T) {
	writer := &recordingWriter{}
	p := &producer{writer: writer, logger: logging.NewNopLogger()}
	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := DecodeModelTrained([]byte("{"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeSerialization))

	_, err = DecodeMoleculeScored([]byte("not json"))
	assert.Error(t, err)
}
