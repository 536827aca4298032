package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/ladder/internal/adapters/mq/queue"
	worker "github.com/okian/ladder/internal/adapters/mq/worker"
	"github.com/smartystreets/goconvey/convey"
)

func startDispatcher(capacity int) (*worker.Dispatcher, *queue.InMemoryQueue, context.CancelFunc) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(capacity))
	d := worker.NewDispatcher(q, worker.WithName("test-dispatcher"))
	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	return d, q, cancel
}

func TestDispatcherOrdering(t *testing.T) {
	convey.Convey("Given a running dispatcher", t, func() {
		d, _, cancel := startDispatcher(8)
		defer cancel()
		ctx := context.Background()

		convey.Convey("When many commands are submitted", func() {
			var mu sync.Mutex
			var order []int
			for i := 0; i < 50; i++ {
				i := i
				err := d.Submit(ctx, "append", func(context.Context) error {
					mu.Lock()
					order = append(order, i)
					mu.Unlock()
					return nil
				})
				convey.So(err, convey.ShouldBeNil)
			}
			convey.So(d.Do(ctx, "barrier", func(context.Context) error { return nil }), convey.ShouldBeNil)

			convey.Convey("Then they run in submission order", func() {
				mu.Lock()
				defer mu.Unlock()
				convey.So(len(order), convey.ShouldEqual, 50)
				for i, v := range order {
					convey.So(v, convey.ShouldEqual, i)
				}
			})
		})

		convey.Convey("When commands are submitted from several goroutines", func() {
			var active, maxActive int
			var mu sync.Mutex
			var wg sync.WaitGroup
			for g := 0; g < 4; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 20; i++ {
						_ = d.Do(ctx, "ping", func(context.Context) error {
							mu.Lock()
							active++
							if active > maxActive {
								maxActive = active
							}
							mu.Unlock()
							time.Sleep(100 * time.Microsecond)
							mu.Lock()
							active--
							mu.Unlock()
							return nil
						})
					}
				}()
			}
			wg.Wait()

			convey.Convey("Then no two commands overlap", func() {
				convey.So(maxActive, convey.ShouldEqual, 1)
			})
		})
	})
}

func TestDispatcherResults(t *testing.T) {
	convey.Convey("Given a running dispatcher", t, func() {
		d, _, cancel := startDispatcher(4)
		defer cancel()
		ctx := context.Background()

		convey.Convey("When a command fails", func() {
			boom := errors.New("boom")
			err := d.Do(ctx, "fail", func(context.Context) error { return boom })

			convey.Convey("Then Do returns its error", func() {
				convey.So(errors.Is(err, boom), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a command panics", func() {
			err := d.Do(ctx, "panic", func(context.Context) error { panic("bad state") })

			convey.Convey("Then the panic becomes an error and the loop survives", func() {
				convey.So(errors.Is(err, worker.ErrPanic), convey.ShouldBeTrue)
				convey.So(d.Do(ctx, "after", func(context.Context) error { return nil }), convey.ShouldBeNil)
			})
		})

		convey.Convey("When a command submits more work", func() {
			var inner bool
			err := d.Do(ctx, "outer", func(ctx context.Context) error {
				return d.Do(ctx, "inner", func(context.Context) error {
					inner = true
					return nil
				})
			})

			convey.Convey("Then the nested call runs inline instead of deadlocking", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(inner, convey.ShouldBeTrue)
			})
		})
	})
}

func TestDispatcherShutdown(t *testing.T) {
	convey.Convey("Given a dispatcher", t, func() {
		convey.Convey("When shut down while running", func() {
			d, _, cancel := startDispatcher(4)
			defer cancel()
			convey.So(d.Do(context.Background(), "warm", func(context.Context) error { return nil }), convey.ShouldBeNil)

			ctx, done := context.WithTimeout(context.Background(), time.Second)
			defer done()
			err := d.Shutdown(ctx)

			convey.Convey("Then it stops and a second shutdown is harmless", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(d.Shutdown(ctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When shut down before it ever ran", func() {
			q := queue.NewInMemoryQueue()
			d := worker.NewDispatcher(q)

			convey.Convey("Then Shutdown returns immediately and Run is a no-op", func() {
				convey.So(d.Shutdown(context.Background()), convey.ShouldBeNil)
				finished := make(chan struct{})
				go func() {
					d.Run(context.Background())
					close(finished)
				}()
				select {
				case <-finished:
				case <-time.After(time.Second):
					convey.So("Run returned", convey.ShouldEqual, "Run blocked")
				}
			})
		})

		convey.Convey("When the queue is closed", func() {
			d, q, cancel := startDispatcher(4)
			defer cancel()
			convey.So(q.Close(), convey.ShouldBeNil)

			convey.Convey("Then submissions fail with the queue error", func() {
				err := d.Submit(context.Background(), "late", func(context.Context) error { return nil })
				convey.So(errors.Is(err, queue.ErrClosed), convey.ShouldBeTrue)
			})
		})
	})
}
