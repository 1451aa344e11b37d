package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
	"github.com/vladislavdragonenkov/ordering/internal/storage/memory"
)

func TestOutboxRepository_PullPendingPreservesOrder(t *testing.T) {
	repo := memory.NewOutboxRepository()
	first := repo.Enqueue(domain.OutboxMessage{EventType: "a"})
	second := repo.Enqueue(domain.OutboxMessage{EventType: "b"})
	third := repo.Enqueue(domain.OutboxMessage{EventType: "c"})

	msgs, err := repo.PullPending(2)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != first.ID || msgs[1].ID != second.ID {
		t.Fatalf("unexpected batch: %+v", msgs)
	}

	if err := repo.MarkSent(first.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := repo.MarkFailed(second.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	msgs, err = repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != third.ID {
		t.Fatalf("expected only third message, got %+v", msgs)
	}
}

func TestOutboxRepository_Stats(t *testing.T) {
	repo := memory.NewOutboxRepository()

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 0 || !stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected empty stats: %+v", stats)
	}

	repo.Enqueue(domain.OutboxMessage{EventType: "a"})
	repo.Enqueue(domain.OutboxMessage{EventType: "b"})

	stats, err = repo.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 2 || stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestOutboxRepository_MarkUnknown(t *testing.T) {
	repo := memory.NewOutboxRepository()
	if err := repo.MarkSent("missing"); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("expected ErrOutboxPublish, got %v", err)
	}
}

func TestOutboxRepository_DeleteSentBeforeRespectsLimit(t *testing.T) {
	repo := memory.NewOutboxRepository()
	for i := 0; i < 3; i++ {
		msg := repo.Enqueue(domain.OutboxMessage{EventType: "a"})
		if err := repo.MarkSent(msg.ID); err != nil {
			t.Fatalf("mark sent: %v", err)
		}
	}
	repo.Enqueue(domain.OutboxMessage{EventType: "pending"})

	deleted, err := repo.DeleteSentBefore(time.Now().UTC().Add(-time.Minute), 10)
	if err != nil || deleted != 0 {
		t.Fatalf("expected nothing older than cutoff, got %d %v", deleted, err)
	}

	cutoff := time.Now().UTC().Add(time.Minute)
	deleted, err = repo.DeleteSentBefore(cutoff, 2)
	if err != nil || deleted != 2 {
		t.Fatalf("expected limited delete of 2, got %d %v", deleted, err)
	}
	deleted, err = repo.DeleteSentBefore(cutoff, 2)
	if err != nil || deleted != 1 {
		t.Fatalf("expected remaining 1, got %d %v", deleted, err)
	}
	if pending := repo.AllPending(); len(pending) != 1 {
		t.Fatalf("pending message must stay, got %d", len(pending))
	}
}
