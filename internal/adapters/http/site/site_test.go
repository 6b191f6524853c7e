package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestRegister(t *testing.T) {
	convey.Convey("Given a mux with the site registered", t, func() {
		mux := http.NewServeMux()
		Register(context.Background(), mux)

		convey.Convey("When the root is requested", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest("GET", "/", http.NoBody))

			convey.Convey("Then it should redirect to the chart client", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusFound)
				convey.So(w.Header().Get("Location"), convey.ShouldEqual, Home)
			})
		})

		convey.Convey("When an unknown path is requested", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest("GET", "/nope", http.NoBody))

			convey.Convey("Then it should not be found", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusNotFound)
			})
		})

		convey.Convey("When the root is posted to", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest("POST", "/", http.NoBody))

			convey.Convey("Then it should not be found", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusNotFound)
			})
		})
	})

	convey.Convey("Given a nil mux", t, func() {
		convey.Convey("Then registering should panic", func() {
			convey.So(func() { Register(context.Background(), nil) }, convey.ShouldPanic)
		})
	})
}
