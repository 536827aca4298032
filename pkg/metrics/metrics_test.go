package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then every collector is registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.linkCacheHits.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_link_cache_hits_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty options are given", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithConstLabels(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "ladder")
				So(manager.subsystem, ShouldEqual, "engine")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})

		Convey("When two managers share a registry", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording dataset loads", func() {
			before := testutil.ToFloat64(globalManager.datasetLoads.WithLabelValues("snapshot", "ready"))
			RecordDatasetLoad("snapshot", "ready", 12)
			UpdateDatasetRecords("snapshot", 143)

			Convey("Then the counters move", func() {
				So(testutil.ToFloat64(globalManager.datasetLoads.WithLabelValues("snapshot", "ready")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.datasetRecords.WithLabelValues("snapshot")), ShouldEqual, 143)
			})
		})

		Convey("When recording link results", func() {
			before := testutil.ToFloat64(globalManager.linkResults.WithLabelValues("fuzzy"))
			RecordLinks("fuzzy", 3)
			RecordLinks("fuzzy", 0)
			RecordLinkConfidence(0.9)
			RecordLinkCache(2, 1)

			Convey("Then non-positive counts are ignored", func() {
				So(testutil.ToFloat64(globalManager.linkResults.WithLabelValues("fuzzy")), ShouldEqual, before+3)
			})
		})

		Convey("When the animation state changes", func() {
			UpdateAnimation(2010, true)

			Convey("Then the gauges follow", func() {
				So(testutil.ToFloat64(globalManager.animationYear), ShouldEqual, 2010)
				So(testutil.ToFloat64(globalManager.animationPlaying), ShouldEqual, 1)
			})

			UpdateAnimation(2011, false)
			So(testutil.ToFloat64(globalManager.animationPlaying), ShouldEqual, 0)
		})

		Convey("When recording commands", func() {
			before := testutil.ToFloat64(globalManager.commandErrors.WithLabelValues("load"))
			RecordCommand("load", 3, true)
			RecordCommand("load", 1, false)

			Convey("Then only failures count as errors", func() {
				So(testutil.ToFloat64(globalManager.commandErrors.WithLabelValues("load")), ShouldEqual, before+1)
			})
		})

		Convey("When recording the rest", func() {
			So(func() {
				RecordAnimationTick()
				RecordHighlightFlip()
				RecordSelection("selected")
				UpdateStreamClients(2)
				RecordStreamFrame("animation")
				RecordStoreLatency("put", 0.4)
				RecordEvaluationSaved("initial")
				RecordHTTPRequest("/map", "GET", "200")
				RecordHTTPRequestDuration("/map", "GET", "200", 2)
				UpdateQueueSize(4)
				UpdateQueueCapacity(16)
				UpdateQueueUtilization(0.25)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueWait(0.1)
				RecordErrorByComponent("loader", "malformed")
				RecordErrorByEndpoint("/select", "POST", "invalid_selection")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
		})
	})
}

func TestConcurrentRecording(t *testing.T) {
	Convey("Given many goroutines", t, func() {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordAnimationTick()
					UpdateQueueSize(j)
					RecordHTTPRequest("/ranking", "GET", "200")
				}
			}()
		}
		wg.Wait()

		Convey("Then the registry still gathers", func() {
			_, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
		})
	})
}
