package usage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/nimbusdeck/edge/internal/models"
	"github.com/nimbusdeck/edge/pkg/logger"
)

// Emitter accepts data points for asynchronous delivery. Emit must never
// block the request path and its failures must never surface to callers.
type Emitter interface {
	Emit(dp models.UsageDataPoint)
}

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// QueueEmitter buffers data points on a channel and ships them to SQS from a
// single background worker. When the buffer is full the data point is
// dropped; losing a usage record is preferable to adding latency.
type QueueEmitter struct {
	client   sqsAPI
	queueURL string
	ch       chan models.UsageDataPoint
	log      *logger.Logger
	wg       sync.WaitGroup
}

func NewQueueEmitter(client sqsAPI, queueURL string, bufferSize int, log *logger.Logger) *QueueEmitter {
	e := &QueueEmitter{
		client:   client,
		queueURL: queueURL,
		ch:       make(chan models.UsageDataPoint, bufferSize),
		log:      log,
	}

	e.wg.Add(1)
	go e.run()

	return e
}

func (e *QueueEmitter) Emit(dp models.UsageDataPoint) {
	select {
	case e.ch <- dp:
	default:
		e.log.Warn("usage buffer full, dropping data point")
	}
}

func (e *QueueEmitter) run() {
	defer e.wg.Done()

	for dp := range e.ch {
		e.send(dp)
	}
}

func (e *QueueEmitter) send(dp models.UsageDataPoint) {
	body, err := json.Marshal(dp)
	if err != nil {
		e.log.Warn("failed to marshal usage data point")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = e.client.SendMessage(ctx, &sqs.SendMessageInput{
		MessageBody: aws.String(string(body)),
		QueueUrl:    aws.String(e.queueURL),
	})
	if err != nil {
		// Swallowed: telemetry must not affect user-visible behavior.
		e.log.Error("failed to send usage data point", err)
	}
}

// Close drains buffered data points and stops the worker.
func (e *QueueEmitter) Close() {
	close(e.ch)
	e.wg.Wait()
}
