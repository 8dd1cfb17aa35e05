package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/MolScore/pkg/errors"
)

type scriptedReader struct {
	queue     []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (r *scriptedReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.queue) == 0 {
		// Simulate a blocked fetch interrupted by cancellation.
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	return msg, nil
}

func (r *scriptedReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

func TestConsumer_Run_CommitsHandledMessages(t *testing.T) {
	reader := &scriptedReader{queue: []kafka.Message{
		{Topic: TopicModelTrained, Offset: 1, Value: []byte(`{"model_kind":"AtomLL"}`)},
		{Topic: TopicModelTrained, Offset: 2, Value: []byte(`{"model_kind":"MolLL"}`)},
	}}
	c := &Consumer{reader: reader, topic: TopicModelTrained, logger: logging.NewNopLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	var kinds []string
	err := c.Run(ctx, func(_ context.Context, msg kafka.Message) error {
		ev, err := DecodeModelTrained(msg.Value)
		require.NoError(t, err)
		kinds = append(kinds, ev.ModelKind)
		if len(kinds) == 2 {
			cancel()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"AtomLL", "MolLL"}, kinds)
	assert.Len(t, reader.committed, 2)
}

func TestConsumer_Run_LeavesFailedMessagesUncommitted(t *testing.T) {
	reader := &scriptedReader{queue: []kafka.Message{
		{Topic: TopicModelTrained, Offset: 1, Value: []byte(`broken`)},
	}}
	c := &Consumer{reader: reader, topic: TopicModelTrained, logger: logging.NewNopLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	err := c.Run(ctx, func(_ context.Context, msg kafka.Message) error {
		defer cancel()
		return pkgerrors.Internal("cannot handle")
	})

	require.NoError(t, err)
	assert.Empty(t, reader.committed)
}

func TestConsumer_Close(t *testing.T) {
	reader := &scriptedReader{}
	c := &Consumer{reader: reader, topic: TopicModelTrained, logger: logging.NewNopLogger()}
	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
}
