package queue_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/tiaraboard/tiara/internal/adapters/mq/queue"
)

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a new in-memory queue", t, func() {
		ctx := context.Background()

		Convey("When created with default options", func() {
			q := queue.NewInMemoryQueue()
			defer q.Close()

			Convey("Then it should start empty", func() {
				So(q, ShouldNotBeNil)
				So(q.Len(ctx), ShouldEqual, 0)
			})
		})

		Convey("When enqueuing refresh events", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(4))
			defer q.Close()

			Convey("Then events are accepted up to capacity", func() {
				for i := 0; i < 4; i++ {
					So(q.Enqueue(ctx, queue.Event{DivisionID: "div-1"}), ShouldBeTrue)
				}
				So(q.Len(ctx), ShouldEqual, 4)
			})

			Convey("And a full queue rejects without blocking", func() {
				for i := 0; i < 4; i++ {
					q.Enqueue(ctx, queue.Event{DivisionID: "div-1"})
				}
				So(q.Enqueue(ctx, queue.Event{DivisionID: "div-2"}), ShouldBeFalse)
			})
		})

		Convey("When dequeuing events", func() {
			q := queue.NewInMemoryQueue()
			defer q.Close()

			sent := queue.Event{DivisionID: "div-1", CategoryID: "gown"}
			So(q.Enqueue(ctx, sent), ShouldBeTrue)

			Convey("Then the event arrives on the channel", func() {
				select {
				case got := <-q.Dequeue(ctx):
					So(got, ShouldResemble, sent)
				case <-time.After(time.Second):
					So("timeout", ShouldBeEmpty)
				}
			})
		})

		Convey("When the queue is closed", func() {
			q := queue.NewInMemoryQueue()
			out := q.Dequeue(ctx)
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueue is rejected", func() {
				So(q.Enqueue(ctx, queue.Event{DivisionID: "div-1"}), ShouldBeFalse)
			})

			Convey("And the dequeue channel closes", func() {
				select {
				case _, ok := <-out:
					So(ok, ShouldBeFalse)
				case <-time.After(time.Second):
					So("timeout", ShouldBeEmpty)
				}
			})

			Convey("And closing twice is harmless", func() {
				So(q.Close(), ShouldBeNil)
			})
		})

		Convey("When the enqueue context is already cancelled on a full queue", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(1))
			defer q.Close()
			q.Enqueue(ctx, queue.Event{DivisionID: "div-1"})

			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			Convey("Then the enqueue fails instead of blocking", func() {
				So(q.Enqueue(cancelled, queue.Event{DivisionID: "div-2"}), ShouldBeFalse)
			})
		})
	})
}
