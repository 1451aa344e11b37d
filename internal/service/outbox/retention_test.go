package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
	"github.com/vladislavdragonenkov/ordering/internal/storage/memory"
)

var _ domain.OutboxPurger = (*stubPurger)(nil)

func TestRetentionWorker_PurgeBatches(t *testing.T) {
	t.Parallel()

	repo := &stubPurger{results: []int{2, 2, 1}}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	worker := NewRetentionWorker(repo, RetentionOptions{
		Metrics:   isolatedMetrics(),
		BatchSize: 2,
		MaxAge:    time.Hour,
		Now:       func() time.Time { return now },
	})

	deleted, err := worker.Purge(context.Background())
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if deleted != 5 {
		t.Fatalf("unexpected deleted total: got=%d want=5", deleted)
	}
	if calls := repo.calls(); calls != 3 {
		t.Fatalf("unexpected delete calls: got=%d want=3", calls)
	}
	if want := now.Add(-time.Hour); !repo.lastBefore().Equal(want) {
		t.Fatalf("unexpected cutoff: got=%s want=%s", repo.lastBefore(), want)
	}
}

func TestRetentionWorker_PurgeError(t *testing.T) {
	t.Parallel()

	repo := &stubPurger{results: []int{3}, errs: []error{nil, errors.New("boom")}}
	worker := NewRetentionWorker(repo, RetentionOptions{Metrics: isolatedMetrics(), BatchSize: 3})

	deleted, err := worker.Purge(context.Background())
	if err == nil {
		t.Fatal("expected Purge error")
	}
	if deleted != 3 {
		t.Fatalf("expected partial total 3, got %d", deleted)
	}
}

func TestRetentionWorker_PurgeCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := &stubPurger{}
	worker := NewRetentionWorker(repo, RetentionOptions{Metrics: isolatedMetrics()})
	if _, err := worker.Purge(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if repo.calls() != 0 {
		t.Fatal("repo must not be called after cancel")
	}
}

func TestRetentionWorker_RunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	repo := &stubPurger{}
	worker := NewRetentionWorker(repo, RetentionOptions{
		Metrics:  isolatedMetrics(),
		Interval: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
	if repo.calls() == 0 {
		t.Fatal("expected purge to run at least once")
	}
}

func TestRetentionWorker_RunWithoutRepoReturns(t *testing.T) {
	t.Parallel()

	worker := NewRetentionWorker(nil, RetentionOptions{Metrics: isolatedMetrics()})

	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker without repo must return immediately")
	}
}

func TestRetentionWorker_KeepsPendingAndFailed(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	sent := repo.Enqueue(domain.OutboxMessage{AggregateType: domain.AggregateTypeOrder, AggregateID: "1", EventType: domain.EventTypeOrderStarted})
	failed := repo.Enqueue(domain.OutboxMessage{AggregateType: domain.AggregateTypeOrder, AggregateID: "2", EventType: domain.EventTypeOrderStarted})
	pending := repo.Enqueue(domain.OutboxMessage{AggregateType: domain.AggregateTypeBuyer, AggregateID: "3", EventType: domain.EventTypeBuyerPaymentMethodVerified})

	if err := repo.MarkSent(sent.ID); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if err := repo.MarkFailed(failed.ID); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	worker := NewRetentionWorker(repo, RetentionOptions{
		Metrics: isolatedMetrics(),
		MaxAge:  time.Minute,
		Now:     func() time.Time { return time.Now().UTC().Add(time.Hour) },
	})

	deleted, err := worker.Purge(context.Background())
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected only the sent message to be purged, got %d", deleted)
	}

	if err := repo.MarkSent(sent.ID); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("purged message must be gone, got %v", err)
	}
	if err := repo.MarkSent(failed.ID); err != nil {
		t.Fatalf("failed message must survive purge: %v", err)
	}
	left := repo.AllPending()
	if len(left) != 1 || left[0].ID != pending.ID {
		t.Fatalf("pending message must survive purge: %+v", left)
	}
}

type stubPurger struct {
	mu sync.Mutex

	results   []int
	errs      []error
	callCount int
	before    time.Time
}

func (s *stubPurger) DeleteSentBefore(before time.Time, _ int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	s.before = before

	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return 0, err
		}
	}
	if len(s.results) == 0 {
		return 0, nil
	}
	result := s.results[0]
	s.results = s.results[1:]
	return result, nil
}

func (s *stubPurger) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

func (s *stubPurger) lastBefore() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.before
}
