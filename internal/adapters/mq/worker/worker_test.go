package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"coachledger/internal/adapters/ledger"
	"coachledger/internal/adapters/mq/queue"
	"coachledger/internal/adapters/mq/worker"
	"coachledger/internal/domain/model"
	"coachledger/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type stubResolver struct {
	mu   sync.Mutex
	seen []string
	fail map[string]error
}

func (r *stubResolver) Resolve(_ context.Context, event worker.Event) (model.ResolvedIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[event.ExternalID]; err != nil {
		return model.ResolvedIdentity{}, err
	}
	r.seen = append(r.seen, event.ExternalID)
	return model.ResolvedIdentity{
		Coach:   "Jenny Duan",
		Student: "Huda Aweys",
		Week:    5,
		Overall: 95,
	}, nil
}

func (r *stubResolver) resolved() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

type stubCommitter struct {
	mu        sync.Mutex
	committed []string
}

func (c *stubCommitter) Commit(_ context.Context, event worker.Event, _ model.ResolvedIdentity) (ledger.Action, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.committed = append(c.committed, event.ExternalID)
	return ledger.ActionInserted, nil
}

func (c *stubCommitter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.committed)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestPool(t *testing.T) {
	ctx := context.Background()

	Convey("Given a worker pool over an in-memory queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		resolver := &stubResolver{}
		committer := &stubCommitter{}

		Convey("When events flow through the pool", func() {
			pool := worker.NewPool(3, q, resolver, committer)
			pool.Start(ctx)

			for i := 0; i < 10; i++ {
				So(q.Enqueue(ctx, model.RecordingEvent{ExternalID: fmt.Sprintf("ev-%d", i)}), ShouldBeTrue)
			}

			waitFor(t, func() bool { return committer.count() == 10 })

			Convey("Then every event is resolved and committed once", func() {
				So(resolver.resolved(), ShouldHaveLength, 10)
				So(committer.count(), ShouldEqual, 10)
			})

			pool.Stop()
		})

		Convey("When a resolve fails", func() {
			resolver.fail = map[string]error{"ev-bad": errors.New("no roster match")}
			pool := worker.NewPool(1, q, resolver, committer)
			pool.Start(ctx)

			So(q.Enqueue(ctx, model.RecordingEvent{ExternalID: "ev-bad"}), ShouldBeTrue)
			So(q.Enqueue(ctx, model.RecordingEvent{ExternalID: "ev-good"}), ShouldBeTrue)

			waitFor(t, func() bool { return committer.count() == 1 })

			Convey("Then the failure is isolated and the worker keeps going", func() {
				So(committer.committed, ShouldResemble, []string{"ev-good"})
			})

			pool.Stop()
		})

		Convey("When the pool shuts down", func() {
			pool := worker.NewPool(2, q, resolver, committer)
			pool.Start(ctx)

			for i := 0; i < 5; i++ {
				So(q.Enqueue(ctx, model.RecordingEvent{ExternalID: fmt.Sprintf("ev-%d", i)}), ShouldBeTrue)
			}

			Convey("Then queued events drain before workers exit", func() {
				So(pool.Shutdown(ctx), ShouldBeNil)

				So(q.IsClosed(), ShouldBeTrue)
				So(committer.count(), ShouldEqual, 5)
			})
		})
	})
}

func TestWorkerShutdown(t *testing.T) {
	ctx := context.Background()

	Convey("Given a single idle worker", t, func() {
		q := queue.NewInMemoryQueue()
		w := worker.NewWorker(q, &stubResolver{}, &stubCommitter{}, worker.WithName("solo"))
		go w.Run(ctx)

		Convey("When Shutdown is called", func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()

			So(w.Shutdown(shutdownCtx), ShouldBeNil)
		})
	})
}
