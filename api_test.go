package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func apiRequest(h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Add("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func waitForTicks(read func() int, want int) int {
	got := read()
	for i := 0; i < 1000 && got != want; i++ {
		time.Sleep(time.Millisecond)
		got = read()
	}
	return got
}

func TestCommandRoutes(t *testing.T) {
	ENV.DEBUG = true
	defer func() { ENV.DEBUG = false }()
	bus := startTestVehicle(t)
	router := newRouter()
	driveTicks := func() int { return bus.Channel(0).OffTick }

	Convey("drive commands reach the board clamped", t, func() {
		rr := apiRequest(router, "POST", "/api/drive_cmd", `{"data": 2500}`, "")
		So(rr.Code, ShouldEqual, http.StatusAccepted)
		So(waitForTicks(driveTicks, 410), ShouldEqual, 410)
	})

	Convey("steering commands reach the board", t, func() {
		rr := apiRequest(router, "POST", "/api/steering_cmd", `{"data": 1250}`, "")
		So(rr.Code, ShouldEqual, http.StatusAccepted)
		So(waitForTicks(func() int { return bus.Channel(1).OffTick }, 256), ShouldEqual, 256)
	})

	Convey("commands without data are refused", t, func() {
		rr := apiRequest(router, "POST", "/api/steering_cmd", `{}`, "")
		So(rr.Code, ShouldEqual, http.StatusBadRequest)

		rr = apiRequest(router, "POST", "/api/drive_cmd", `{"data": "fast"}`, "")
		So(rr.Code, ShouldEqual, http.StatusBadRequest)
	})

	Convey("disabling the drive holds neutral", t, func() {
		rr := apiRequest(router, "POST", "/api/drive_cmd", `{"data": 1800}`, "")
		So(rr.Code, ShouldEqual, http.StatusAccepted)

		rr = apiRequest(router, "POST", "/api/enable_drive", `{"data": false}`, "")
		So(rr.Code, ShouldEqual, http.StatusOK)
		So(rr.Body.String(), ShouldContainSubstring, `"success":true`)
		So(rr.Body.String(), ShouldContainSubstring, "drive disabled")
		So(waitForTicks(driveTicks, 307), ShouldEqual, 307)

		Convey("and enabling restores the stored command", func() {
			rr := apiRequest(router, "POST", "/api/enable_drive", `{"data": true}`, "")
			So(rr.Code, ShouldEqual, http.StatusOK)
			So(waitForTicks(driveTicks, 369), ShouldEqual, 369)
		})
	})

	Convey("a malformed enable request fails without changing state", t, func() {
		rr := apiRequest(router, "POST", "/api/enable_drive", `{}`, "")
		So(rr.Code, ShouldEqual, http.StatusOK)
		So(rr.Body.String(), ShouldContainSubstring, `"success":false`)
	})

	Convey("state is reported", t, func() {
		rr := apiRequest(router, "GET", "/api/state", "", "")
		So(rr.Code, ShouldEqual, http.StatusOK)

		var state map[string]interface{}
		So(json.Unmarshal(rr.Body.Bytes(), &state), ShouldBeNil)
		So(state["phase"], ShouldEqual, "running")
		So(state, ShouldContainKey, "drive_pulse")

		// ages are seconds, a test run never gets near a minute
		So(state["drive_age"], ShouldHaveSameTypeAs, float64(0))
		So(state["drive_age"], ShouldBeLessThan, 60.0)
	})
}

func TestCommandRoutesRequireAuth(t *testing.T) {
	ENV.DEBUG = false
	ENV.JWT_SECRET = "this is a test secret"
	startTestVehicle(t)
	router := newRouter()

	Convey("control routes need a token", t, func() {
		rr := apiRequest(router, "POST", "/api/drive_cmd", `{"data": 1500}`, "")
		So(rr.Code, ShouldEqual, http.StatusUnauthorized)

		token, err := newJWT("operator@test.case")
		So(err, ShouldBeNil)
		rr = apiRequest(router, "POST", "/api/drive_cmd", `{"data": 1500}`, token)
		So(rr.Code, ShouldEqual, http.StatusAccepted)
	})

	Convey("state is public", t, func() {
		rr := apiRequest(router, "GET", "/api/state", "", "")
		So(rr.Code, ShouldEqual, http.StatusOK)
	})
}
