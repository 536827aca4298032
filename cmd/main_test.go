package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	app "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/config"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init(logger.WithWriter(os.Stderr))
	logger.SetLevel(slog.LevelError)
}

func TestInitLogging(t *testing.T) {
	convey.Convey("Given JSON logging into a buffer", t, func() {
		var buf bytes.Buffer
		convey.So(initLogging(true, logger.WithWriter(&buf)), convey.ShouldBeNil)
		defer func() {
			_ = logger.Init(logger.WithWriter(os.Stderr))
			logger.SetLevel(slog.LevelError)
		}()

		logger.Get().Info(context.Background(), "ready")

		convey.Convey("Then every record names the service", func() {
			convey.So(buf.String(), convey.ShouldContainSubstring, `"service":"ladder"`)
			convey.So(buf.String(), convey.ShouldContainSubstring, `"msg":"ready"`)
		})
	})
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			t.Setenv("LADDER_ADDR", ":8080")
			t.Setenv("LADDER_QUEUE_SIZE", "64")
			t.Setenv("LADDER_MIN_YEAR", "2010")

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.MinYear, convey.ShouldEqual, 2010)
			})
		})

		convey.Convey("When the configuration is invalid", func() {
			t.Setenv("LADDER_MIN_YEAR", "2030")

			convey.Convey("Then run refuses to start", func() {
				err := run(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When building the HTTP stack", func() {
			ctx := context.Background()
			cfg := config.New(ctx)
			cfg.StoreInMemory = true
			svc, err := app.New(cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			mux := newMux(ctx, svc, logger.Get())
			srv := newServer(cfg, mux)

			convey.Convey("Then the server uses the configured address", func() {
				convey.So(srv.Addr, convey.ShouldEqual, cfg.Addr)
				convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
			})

			convey.Convey("And docs, metrics and API routes are mounted", func() {
				for path, want := range map[string]int{
					"/openapi.yaml": http.StatusOK,
					"/healthz":      http.StatusOK,
					"/animation":    http.StatusOK,
					"/map":          http.StatusServiceUnavailable,
				} {
					w := httptest.NewRecorder()
					mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
					convey.So(w.Code, convey.ShouldEqual, want)
				}
			})
		})

		convey.Convey("When system metrics are refreshed", func() {
			updateSystemMetrics()

			convey.Convey("Then the registry carries them", func() {
				n, err := testutil.GatherAndCount(metrics.GetRegistry(), "ladder_engine_system_goroutines")
				convey.So(err, convey.ShouldBeNil)
				convey.So(n, convey.ShouldEqual, 1)
			})
		})
	})
}
