package kafka

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

func TestProducer_PublishEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := NewProducerFromSync(mockProducer)

	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var decoded map[string]any
		if err := json.Unmarshal(val, &decoded); err != nil {
			return err
		}
		if decoded["order_id"] != float64(7) {
			return fmt.Errorf("unexpected payload: %s", val)
		}
		return nil
	})

	err := producer.PublishEvent(TopicOrderEvents, "7", map[string]any{"order_id": 7})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := NewProducerFromSync(mockProducer)

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := producer.PublishEvent(TopicOrderEvents, "7", map[string]any{"order_id": 7})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_MarshalError(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := NewProducerFromSync(mockProducer)

	if err := producer.PublishEvent(TopicOrderEvents, "7", make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewEnvelope(t *testing.T) {
	msg := domain.OutboxMessage{
		ID:            "outbox-1",
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   "15",
		EventType:     domain.EventTypeOrderStarted,
		Payload:       []byte(`{"order_id":15}`),
	}

	env := NewEnvelope(msg)
	if env.ID != msg.ID || env.AggregateID != "15" || env.EventType != domain.EventTypeOrderStarted {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if string(env.Payload) != `{"order_id":15}` {
		t.Fatalf("unexpected payload: %s", env.Payload)
	}
	if env.PublishedAt.IsZero() {
		t.Fatal("expected published_at to be set")
	}

	empty := NewEnvelope(domain.OutboxMessage{ID: "outbox-2"})
	if _, err := json.Marshal(empty); err != nil {
		t.Fatalf("envelope with empty payload must marshal: %v", err)
	}
}

func TestTopicFor(t *testing.T) {
	cases := map[string]string{
		domain.AggregateTypeOrder: TopicOrderEvents,
		domain.AggregateTypeBuyer: TopicBuyerEvents,
		"":                        TopicOrderEvents,
	}
	for aggregateType, want := range cases {
		if got := TopicFor(aggregateType); got != want {
			t.Fatalf("TopicFor(%q) = %q, want %q", aggregateType, got, want)
		}
	}
}
