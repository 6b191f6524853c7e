package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/pacechart/internal/config"
	"github.com/okian/pacechart/pkg/logger"
	"github.com/okian/pacechart/pkg/metrics"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadSeries(t *testing.T) {
	convey.Convey("Given a series file", t, func() {
		path := writeFile(t, "series.json", `{"IL":[2500,2000],"CL":[1100]}`)

		convey.Convey("When it is loaded", func() {
			raw, err := loadSeries(path)

			convey.Convey("Then the countries should keep their file order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(raw.Codes(), convey.ShouldResemble, []string{"IL", "CL"})
			})
		})
	})

	convey.Convey("Given a missing or malformed series file", t, func() {
		bad := writeFile(t, "bad.json", `{"IL":`)

		convey.Convey("Then loading should fail", func() {
			_, err := loadSeries(filepath.Join(t.TempDir(), "nope.json"))
			convey.So(err, convey.ShouldNotBeNil)
			_, err = loadSeries(bad)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestApplicationWiring(t *testing.T) {
	convey.Convey("Given a configuration with a seed file and a custom directory", t, func() {
		cfg := config.New()
		cfg.SeriesFile = writeFile(t, "series.json", `{"IL":[2500,2000,1500],"XK":[1800,900]}`)
		cfg.CountriesFile = writeFile(t, "countries.yaml", `countries:
  - {code: IL, name: Israel, population: 9216000}
  - {code: XK, name: Kosovo, population: 1800000}
`)

		svc, err := newService(cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		defer svc.Stop()

		srv := newHTTPServer(context.Background(), cfg, svc)

		convey.Convey("Then the server should use the configured address", func() {
			convey.So(srv.Addr, convey.ShouldEqual, cfg.Addr)
			convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
		})

		convey.Convey("Then the chart should name countries from the custom directory", func() {
			req := httptest.NewRequest("GET", "/chart.svg?width=1000", http.NoBody)
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, req)

			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "country-XK")
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "Israel 2,500")
		})

		convey.Convey("Then the docs and metrics routes should be mounted", func() {
			for _, path := range []string{"/openapi.yaml", "/api-docs", "/healthz", "/stats"} {
				w := httptest.NewRecorder()
				srv.Handler.ServeHTTP(w, httptest.NewRequest("GET", path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then the root should send browsers to the dashboard", func() {
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/", http.NoBody))
			convey.So(w.Code, convey.ShouldEqual, http.StatusFound)
			convey.So(w.Header().Get("Location"), convey.ShouldEqual, "/dashboard")
		})

		convey.Convey("Then the service metrics update should publish the store version", func() {
			updateServiceMetrics(svc)
			updateSystemMetrics()

			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", http.NoBody))
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "pacechart_store_version 1")
		})
	})

	convey.Convey("Given a configuration whose countries file is missing", t, func() {
		cfg := config.New()
		cfg.CountriesFile = filepath.Join(t.TempDir(), "missing.yaml")

		convey.Convey("Then the service should not be built", func() {
			_, err := newService(cfg, logger.Get())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(strings.Contains(err.Error(), "countries"), convey.ShouldBeTrue)
		})
	})
}

func TestMetricsManager(t *testing.T) {
	convey.Convey("Given the metrics manager", t, func() {
		convey.Convey("Then a new manager should be creatable", func() {
			convey.So(metrics.NewManager(), convey.ShouldNotBeNil)
		})
	})
}
