package usage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/nimbusdeck/edge/internal/models"
	"github.com/nimbusdeck/edge/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	mu     sync.Mutex
	bodies []string
	err    error
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.bodies = append(f.bodies, *params.MessageBody)
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQS) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.bodies...)
}

func TestQueueEmitterDeliversDataPoints(t *testing.T) {
	queue := &fakeSQS{}
	emitter := NewQueueEmitter(queue, "https://sqs.test/usage", 8, logger.NewNop())

	dp := models.UsageDataPoint{
		Indexes: []string{"p1"},
		Blobs:   []string{"org-1"},
		Doubles: []float64{1},
	}
	emitter.Emit(dp)
	emitter.Close()

	bodies := queue.sent()
	require.Len(t, bodies, 1)

	var got models.UsageDataPoint
	require.NoError(t, json.Unmarshal([]byte(bodies[0]), &got))
	assert.Equal(t, dp, got)
}

func TestQueueEmitterSwallowsSendErrors(t *testing.T) {
	queue := &fakeSQS{err: errors.New("sqs down")}
	emitter := NewQueueEmitter(queue, "https://sqs.test/usage", 8, logger.NewNop())

	// Must not panic or block the caller.
	emitter.Emit(models.UsageDataPoint{Indexes: []string{"p1"}})
	emitter.Close()

	assert.Empty(t, queue.sent())
}

func TestQueueEmitterDropsWhenBufferFull(t *testing.T) {
	queue := &fakeSQS{}
	emitter := &QueueEmitter{
		client:   queue,
		queueURL: "https://sqs.test/usage",
		ch:       make(chan models.UsageDataPoint, 1),
		log:      logger.NewNop(),
	}

	// No worker running: the second emit finds the buffer full and drops.
	emitter.Emit(models.UsageDataPoint{Indexes: []string{"a"}})
	emitter.Emit(models.UsageDataPoint{Indexes: []string{"b"}})

	assert.Len(t, emitter.ch, 1)
}
