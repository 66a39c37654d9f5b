package events

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"github.com/reviewdesk/review-engine/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	NotificationMessageKind string = "reviewdesk.events.notification"
	defaultTopic            string = "reviewdesk.events"
	defaultSource           string = "reviewdesk.review-engine"
)

// Writer is the interface to be implemented by the underlying writer.
type Writer interface {
	Write(ctx context.Context, topic string, e cloudevents.Event) error
	Close(ctx context.Context) error
}

// EventProducer is a wrapper around a Writer with the buffer.
// It has a buffer to store pending events to not block the caller if the writer takes time to write the event.
type EventProducer struct {
	buffer           *buffer
	startConsumingCh chan any
	doneCh           chan any
	stoppedCh        chan any
	writer           Writer
	topic            string
	source           string
}

func NewEventProducer(w Writer, opts ...ProducerOptions) *EventProducer {
	ep := &EventProducer{
		buffer:           newBuffer(),
		startConsumingCh: make(chan any, 1),
		doneCh:           make(chan any),
		stoppedCh:        make(chan any),
		writer:           w,
		topic:            defaultTopic,
		source:           defaultSource,
	}

	for _, o := range opts {
		o(ep)
	}

	go ep.run()
	return ep
}

func (ep *EventProducer) Write(ctx context.Context, kind string, body io.Reader) error {
	d, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	if err := ep.buffer.PushBack(&message{
		Kind: kind,
		Data: d,
	}); err != nil {
		return err
	}

	// wake up the consumer if it is waiting
	select {
	case ep.startConsumingCh <- struct{}{}:
	default:
	}

	return nil
}

// Notify queues a notification for delivery. It never blocks on the writer.
func (ep *EventProducer) Notify(ctx context.Context, n Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return ep.Write(ctx, NotificationMessageKind, bytes.NewReader(data))
}

// Close flushes the pending events and closes the writer.
func (ep *EventProducer) Close() error {
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g, ctx := errgroup.WithContext(closeCtx)
	g.Go(func() error {
		ep.doneCh <- struct{}{}
		select {
		case <-ep.stoppedCh:
		case <-ctx.Done():
			return ctx.Err()
		}
		return ep.writer.Close(ctx)
	})
	if err := g.Wait(); err != nil {
		zap.S().Errorf("event producer closed with error: %s", err)
		return err
	}

	zap.S().Named("event producer").Info("event producer closed")

	return nil
}

func (ep *EventProducer) run() {
	defer close(ep.stoppedCh)

	for {
		if msg := ep.buffer.Pop(); msg != nil {
			ep.send(msg)
			continue
		}

		select {
		case <-ep.startConsumingCh:
		case <-ep.doneCh:
			for msg := ep.buffer.Pop(); msg != nil; msg = ep.buffer.Pop() {
				ep.send(msg)
			}
			return
		}
	}
}

func (ep *EventProducer) send(msg *message) {
	e := cloudevents.NewEvent()
	e.SetID(uuid.NewString())
	e.SetSource(ep.source)
	e.SetType(msg.Kind)
	e.SetTime(time.Now().UTC())
	_ = e.SetData(*cloudevents.StringOfApplicationJSON(), msg.Data)

	if err := ep.writer.Write(context.TODO(), ep.topic, e); err != nil {
		metrics.IncreaseNotificationsMetric("failed")
		zap.S().Named("event_producer").Errorw("failed to send message", "error", err, "event", e)
		return
	}
	metrics.IncreaseNotificationsMetric("sent")
}
