package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/pacechart/internal/adapters/http/api"
	repository "github.com/okian/pacechart/internal/adapters/repository"
	service "github.com/okian/pacechart/internal/app"
	"github.com/okian/pacechart/internal/domain/highlight"
	"github.com/okian/pacechart/internal/domain/model"
	"github.com/okian/pacechart/internal/domain/plot"
	"github.com/okian/pacechart/internal/domain/types"
	"github.com/okian/pacechart/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type mockDeps struct {
	series   *model.RawSeriesMap
	version  uint64
	updates  []model.SeriesUpdate
	seen     map[string]bool
	svg      []byte
	svgErr   error
	hlResult service.HighlightResult
	hlErr    error
	lastPtr  highlight.Pointer
	lastW    float64
	topN     []types.Entry
	rank     types.Entry
	rankErr  error
	lastCode string
	svc      *service.Service
}

func newMockDeps() *mockDeps {
	return &mockDeps{
		series:  model.NewRawSeriesMap(model.Series{Code: "IL", Samples: []float64{3, 2, 1}}),
		version: 7,
		seen:    map[string]bool{},
		svg:     []byte(`<svg class="pacechart"/>`),
	}
}

func (m *mockDeps) Snapshot(context.Context) (repository.Snapshot, error) {
	return repository.Snapshot{Series: m.series, Version: m.version}, nil
}

func (m *mockDeps) ReplaceSeries(_ context.Context, raw *model.RawSeriesMap) (uint64, error) {
	m.series = raw
	m.version++
	return m.version, nil
}

func (m *mockDeps) ApplyUpdate(_ context.Context, u model.SeriesUpdate) (service.UpdateResult, error) {
	if u.Country == "??" {
		return service.UpdateResult{}, repository.ErrInvalidCode
	}
	if m.seen[u.UpdateID] {
		return service.UpdateResult{Version: m.version, Duplicate: true}, nil
	}
	m.seen[u.UpdateID] = true
	m.updates = append(m.updates, u)
	m.version++
	return service.UpdateResult{Version: m.version}, nil
}

func (m *mockDeps) RenderSVG(_ context.Context, width float64) ([]byte, error) {
	m.lastW = width
	return m.svg, m.svgErr
}

func (m *mockDeps) Highlight(_ context.Context, width float64, ptr highlight.Pointer) (service.HighlightResult, error) {
	m.lastW, m.lastPtr = width, ptr
	return m.hlResult, m.hlErr
}

func (m *mockDeps) OpenSession(ctx context.Context, width float64, sink service.Sink) (*service.Session, error) {
	if m.svc == nil {
		return nil, service.ErrNotStarted
	}
	return m.svc.OpenSession(ctx, width, sink)
}

func (m *mockDeps) TopN(_ context.Context, n int) ([]types.Entry, error) {
	if n > len(m.topN) {
		return m.topN, nil
	}
	return m.topN[:n], nil
}

func (m *mockDeps) Rank(_ context.Context, code string) (types.Entry, error) {
	m.lastCode = code
	return m.rank, m.rankErr
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any {
	return m.stats
}

func newMux(deps *mockDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"started": true}}, 10).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

func TestServer_Register(t *testing.T) {
	Convey("Given an API server registered on a mux", t, func() {
		mux := newMux(newMockDeps())

		Convey("Then the metrics endpoint should answer", func() {
			So(do(mux, "GET", "/healthz", "").Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats should be served as JSON", func() {
			w := do(mux, "GET", "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then the dashboard should be served", func() {
			w := do(mux, "GET", "/dashboard", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "/ws?width=")
		})

		Convey("Then wrong methods should not be routed", func() {
			So(do(mux, "DELETE", "/series", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, "POST", "/chart.svg", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, "GET", "/series/updates", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestSeriesHandler(t *testing.T) {
	Convey("Given an API server over a mock dataset", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When the series are fetched", func() {
			w := do(mux, "GET", "/series", "")

			Convey("Then they should be returned with the version tag", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("ETag"), ShouldEqual, `"7"`)
				So(w.Body.String(), ShouldContainSubstring, `"IL":[3,2,1]`)
			})
		})

		Convey("When the series are replaced", func() {
			w := do(mux, "PUT", "/series", `{"US":[5,4],"CL":[9]}`)

			Convey("Then the new dataset should be stored in document order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"countries":2`)
				So(deps.series.Codes(), ShouldResemble, []string{"US", "CL"})
			})
		})

		Convey("When the replacement is not JSON", func() {
			w := do(mux, "PUT", "/series", `[1,2`)

			Convey("Then it should be rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "bad_request")
			})
		})

		Convey("When the same update is posted twice", func() {
			body := `{"update_id":"a1","country":"IL","samples":[4,3]}`
			first := do(mux, "POST", "/series/updates", body)
			second := do(mux, "POST", "/series/updates", body)

			Convey("Then the second should be reported as a duplicate", func() {
				So(first.Code, ShouldEqual, http.StatusAccepted)
				So(second.Code, ShouldEqual, http.StatusOK)
				So(second.Body.String(), ShouldContainSubstring, `"duplicate":true`)
				So(deps.updates, ShouldHaveLength, 1)
			})
		})

		Convey("When an update has no id", func() {
			w := do(mux, "POST", "/series/updates", `{"country":"IL","samples":[1]}`)

			Convey("Then it should be rejected before reaching the service", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.updates, ShouldBeEmpty)
			})
		})

		Convey("When the service rejects the country code", func() {
			w := do(mux, "POST", "/series/updates", `{"update_id":"a2","country":"??","samples":[1]}`)

			Convey("Then it should map to a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestChartHandler(t *testing.T) {
	Convey("Given an API server over a mock renderer", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When the chart is requested without a width", func() {
			w := do(mux, "GET", "/chart.svg", "")

			Convey("Then the default width should be drawn as SVG", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "image/svg+xml")
				So(deps.lastW, ShouldEqual, api.DefaultWidth)
			})
		})

		Convey("When the width is invalid", func() {
			neg := do(mux, "GET", "/chart.svg?width=-4", "")
			nan := do(mux, "GET", "/chart.svg?width=NaN", "")

			Convey("Then it should be rejected", func() {
				So(neg.Code, ShouldEqual, http.StatusBadRequest)
				So(nan.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the draw hits a configuration error", func() {
			deps.svgErr = plot.ErrConfiguration
			w := do(mux, "GET", "/chart.svg?width=300", "")

			Convey("Then it should be a client error with the configuration code", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "configuration")
			})
		})

		Convey("When the service has not started", func() {
			deps.svgErr = service.ErrNotStarted
			w := do(mux, "GET", "/chart.svg", "")

			Convey("Then it should be unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		Convey("When a highlight is queried", func() {
			deps.hlResult = service.HighlightResult{PlotID: "p", Changed: true}
			w := do(mux, "GET", "/highlight?width=800&x=12.5&y=40", "")

			Convey("Then the pointer should default to a move", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastW, ShouldEqual, 800)
				So(deps.lastPtr, ShouldResemble, highlight.Pointer{Kind: highlight.PointerMove, X: 12.5, Y: 40})
				So(w.Body.String(), ShouldContainSubstring, `"changed":true`)
			})
		})

		Convey("When a highlight names an unknown pointer kind", func() {
			w := do(mux, "GET", "/highlight?kind=hover", "")

			Convey("Then it should be rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestLeadersAndRank(t *testing.T) {
	Convey("Given an API server over mock rankings", t, func() {
		deps := newMockDeps()
		deps.topN = []types.Entry{{Rank: 1, Country: "IL", Latest: 3}, {Rank: 2, Country: "US", Latest: 1}}
		deps.rank = types.Entry{Rank: 2, Country: "US", Latest: 1}
		mux := newMux(deps)

		Convey("Then leaders should honor the limit", func() {
			w := do(mux, "GET", "/leaders?limit=1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got []types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got, ShouldHaveLength, 1)
			So(got[0].Country, ShouldEqual, "IL")
		})

		Convey("Then limits above the maximum should be refused", func() {
			w := do(mux, "GET", "/leaders?limit=11", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "limit_exceeded")
		})

		Convey("Then a malformed limit should be refused", func() {
			So(do(mux, "GET", "/leaders?limit=abc", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/leaders?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then rank lookups should be case-insensitive", func() {
			w := do(mux, "GET", "/rank/us", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastCode, ShouldEqual, "US")
		})

		Convey("Then unknown countries should be not found", func() {
			deps.rankErr = repository.ErrNotFound
			w := do(mux, "GET", "/rank/XX", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(errorCode(w), ShouldEqual, "not_found")
		})

		Convey("Then nested paths should be rejected", func() {
			So(do(mux, "GET", "/rank/US/extra", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestSessionHandler(t *testing.T) {
	Convey("Given an API server over a started service", t, func() {
		svc := service.New(service.WithSeries(model.NewRawSeriesMap(
			model.Series{Code: "IL", Samples: []float64{2500, 2000, 1500}},
			model.Series{Code: "US", Samples: []float64{800, 600, 400}},
		)))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		deps := newMockDeps()
		deps.svc = svc
		srv := httptest.NewServer(newMux(deps))
		defer srv.Close()
		wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?width=900"

		Convey("When a client connects", func() {
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			So(err, ShouldBeNil)
			defer conn.Close()
			_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

			var first service.Message
			So(conn.ReadJSON(&first), ShouldBeNil)

			Convey("Then it should receive the initial draw", func() {
				So(first.Type, ShouldEqual, service.MessageDraw)
				So(first.Width, ShouldEqual, 900)
				So(first.SVG, ShouldStartWith, "<svg")
				So(first.Highlight.ActiveCountry, ShouldEqual, "IL")
			})

			Convey("And it sends a pointer leave", func() {
				So(conn.WriteJSON(model.SessionEvent{Kind: model.EventPointerLeave}), ShouldBeNil)
				var ack service.Message
				So(conn.ReadJSON(&ack), ShouldBeNil)

				Convey("Then it should be acknowledged", func() {
					So(ack.Type, ShouldEqual, service.MessageAck)
				})
			})

			Convey("And it sends an unknown event", func() {
				So(conn.WriteJSON(map[string]any{"kind": "click"}), ShouldBeNil)
				var msg service.Message
				So(conn.ReadJSON(&msg), ShouldBeNil)

				Convey("Then it should receive an error message", func() {
					So(msg.Type, ShouldEqual, service.MessageError)
					So(msg.Code, ShouldEqual, service.CodeInvalidEvent)
				})
			})
		})

		Convey("When the width is invalid", func() {
			_, resp, err := websocket.DefaultDialer.Dial(strings.Replace(wsURL, "900", "0", 1), nil)

			Convey("Then the upgrade should be refused", func() {
				So(err, ShouldNotBeNil)
				So(resp, ShouldNotBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})
	})

	Convey("Given an API server whose service is not running", t, func() {
		srv := httptest.NewServer(newMux(newMockDeps()))
		defer srv.Close()

		Convey("When a client connects", func() {
			conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
			So(err, ShouldBeNil)
			defer conn.Close()
			_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
			var msg service.Message
			So(conn.ReadJSON(&msg), ShouldBeNil)

			Convey("Then it should be told the service is unavailable", func() {
				So(msg.Type, ShouldEqual, service.MessageError)
				So(msg.Code, ShouldEqual, "unavailable")
			})
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given an error built from a kind and a cause", t, func() {
		cause := errors.New("boom")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)

		Convey("Then both should be reachable with errors.Is", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: boom")
		})

		Convey("Then wrapping nil should stay nil", func() {
			So(api.Wrap("api.op", nil), ShouldBeNil)
		})
	})
}
