package occupancy_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeroute/chargeroute/internal/occupancy"
)

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []kafka.Message
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := f.messages[0]
	f.messages = f.messages[1:]
	return m, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error { return nil }

func TestKafkaSource_HandlesAndCommits(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		{Key: []byte("st_1"), Value: []byte(`{"queueLength":1}`), Offset: 1},
		{Key: []byte("st_2"), Value: []byte(`{"queueLength":2}`), Offset: 2},
	}}
	src := occupancy.NewKafkaSourceWithReader(reader, occupancy.KafkaConfig{Logger: zerolog.Nop()})

	var seen []string
	err := src.Run(context.Background(), func(_ context.Context, msg occupancy.Message) error {
		seen = append(seen, msg.StationID)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"st_1", "st_2"}, seen)
	assert.Len(t, reader.committed, 2)
}

func TestKafkaSource_RetriesThenCommits(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{{Value: []byte(`{}`)}}}
	src := occupancy.NewKafkaSourceWithReader(reader, occupancy.KafkaConfig{
		MaxRetries:    2,
		RetryInterval: time.Millisecond,
		Logger:        zerolog.Nop(),
	})

	calls := 0
	err := src.Run(context.Background(), func(context.Context, occupancy.Message) error {
		calls++
		return errors.New("store down")
	})
	require.NoError(t, err)

	assert.Equal(t, 3, calls)
	assert.Len(t, reader.committed, 1)
}

func TestNewKafkaSource_RequiresConfig(t *testing.T) {
	_, err := occupancy.NewKafkaSource(occupancy.KafkaConfig{Topic: "occupancy"})
	assert.Error(t, err)
}
