package events

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("producer", Ordered, func() {
	Context("write", func() {
		It("writes succsessfully", func() {
			w := newTestWriter()
			kp := NewEventProducer(w)

			// add the first message
			msg := []byte("msg1")
			err := kp.Write(context.TODO(), "topic1", bytes.NewReader(msg))
			Expect(err).To(BeNil())
			Eventually(w.Len).Should(Equal(1))
			Expect(w.Get(0).Context.GetType()).To(Equal("topic1"))

			msg = []byte("msg2")
			err = kp.Write(context.TODO(), "topic2", bytes.NewReader(msg))
			Expect(err).To(BeNil())

			Eventually(w.Len, 1*time.Second).Should(Equal(2))

			Expect(kp.Close()).To(Succeed())
			Expect(w.closed).To(BeTrue())
		})

		It("flushes pending messages on close", func() {
			w := newTestWriter()
			kp := NewEventProducer(w)

			for i := 0; i < 20; i++ {
				Expect(kp.Write(context.TODO(), "burst", bytes.NewReader([]byte("m")))).To(Succeed())
			}
			Expect(kp.Close()).To(Succeed())
			Expect(w.Len()).To(Equal(20))
		})
	})

	Context("notify", func() {
		It("wraps the notification in a cloud event", func() {
			w := newTestWriter()
			kp := NewEventProducer(w, WithSource("test"))

			err := kp.Notify(context.TODO(), Notification{
				ReviewerID: "expert-1",
				Title:      "New question assigned",
				EntityID:   "q1",
				Type:       NotificationAnswerCreation,
			})
			Expect(err).To(BeNil())
			Eventually(w.Len).Should(Equal(1))

			e := w.Get(0)
			Expect(e.Type()).To(Equal(NotificationMessageKind))
			Expect(e.Source()).To(Equal("test"))

			n := Notification{}
			Expect(json.Unmarshal(e.Data(), &n)).To(Succeed())
			Expect(n.ReviewerID).To(Equal("expert-1"))
			Expect(n.Type).To(Equal(NotificationAnswerCreation))
			Expect(n.CreatedAt.IsZero()).To(BeFalse())

			Expect(kp.Close()).To(Succeed())
		})
	})

	Context("redis stream writer", func() {
		It("appends events to the stream", func() {
			url := os.Getenv("REDIS_URL")
			if url == "" {
				Skip("REDIS_URL not set")
			}

			w, err := NewRedisStreamWriterFromURL(url, "review-engine:test")
			Expect(err).To(BeNil())

			e := cloudevents.NewEvent()
			e.SetID("1")
			e.SetSource("test")
			e.SetType(NotificationMessageKind)
			Expect(e.SetData(*cloudevents.StringOfApplicationJSON(), []byte(`{}`))).To(Succeed())

			Expect(w.Write(context.TODO(), defaultTopic, e)).To(Succeed())
			Expect(w.Close(context.TODO())).To(Succeed())
		})

		It("rejects a malformed url", func() {
			_, err := NewRedisStreamWriterFromURL("not a url", "stream")
			Expect(err).NotTo(BeNil())
		})
	})
})

type testwriter struct {
	mu       sync.Mutex
	Messages []cloudevents.Event
	closed   bool
}

func newTestWriter() *testwriter {
	return &testwriter{Messages: []cloudevents.Event{}}
}

func (t *testwriter) Write(ctx context.Context, topic string, e cloudevents.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Messages = append(t.Messages, e)
	return nil
}

func (t *testwriter) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Messages)
}

func (t *testwriter) Get(i int) cloudevents.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Messages[i]
}

func (t *testwriter) Close(_ context.Context) error {
	t.closed = true
	return nil
}
