package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/tiaraboard/tiara/internal/adapters/http/api"
	"github.com/tiaraboard/tiara/internal/app"
	"github.com/tiaraboard/tiara/internal/config"
	"github.com/tiaraboard/tiara/pkg/metrics"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("TIARA_ADDR", ":8080")
			_ = os.Setenv("TIARA_WORKER_COUNT", "4")
			_ = os.Setenv("TIARA_JWT_SECRET", "test-secret")
			_ = os.Setenv("TIARA_ADMIN_ACCESS_CODE", "admin-code")
			defer func() {
				_ = os.Unsetenv("TIARA_ADDR")
				_ = os.Unsetenv("TIARA_WORKER_COUNT")
				_ = os.Unsetenv("TIARA_JWT_SECRET")
				_ = os.Unsetenv("TIARA_ADMIN_ACCESS_CODE")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When testing service creation", func() {
			convey.Convey("Then service should be creatable with default options", func() {
				svc := app.New()
				convey.So(svc, convey.ShouldNotBeNil)
			})

			convey.Convey("And service should be creatable with custom options", func() {
				svc := app.New(
					app.WithWorkerCount(8),
					app.WithQueueCapacity(2000),
					app.WithCoalesceMaxSize(1000),
				)
				convey.So(svc, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing HTTP server creation", func() {
			svc := app.New()
			auth := api.NewAuthService("secret", "admin-code", time.Hour, svc)

			convey.Convey("Then HTTP server should be creatable", func() {
				server := api.NewServer(svc, svc, auth)
				convey.So(server, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				manager := metrics.NewManager()
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing the service metrics updater", func() {
			svc := app.New()

			convey.Convey("Then it should run until its context expires", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startServiceMetricsUpdater(ctx, svc)
				}, convey.ShouldNotPanic)
			})

			convey.Convey("And a single update should not panic on a stopped service", func() {
				convey.So(func() {
					updateServiceMetrics(svc)
				}, convey.ShouldNotPanic)
			})
		})
	})
}
