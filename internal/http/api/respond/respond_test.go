package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/AnswerGateway/internal/apierr"
)

func render(t *testing.T, err error) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	Error(c, err)

	var body map[string]any
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &body); errDecode != nil {
		t.Fatalf("decode body: %v", errDecode)
	}
	return rec, body
}

func TestErrorStatusMap(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apierr.Invalid("bad"), http.StatusBadRequest},
		{apierr.Missing("Answer"), http.StatusNotFound},
		{apierr.Quota("Daily limit reached"), http.StatusForbidden},
		{apierr.Limited(time.Minute), http.StatusTooManyRequests},
		{apierr.New(apierr.UpstreamUnavailable, "down"), http.StatusBadGateway},
		{apierr.New(apierr.EmptyResponse, "empty"), http.StatusBadGateway},
		{apierr.New(apierr.Unauthorized, "who"), http.StatusUnauthorized},
		{apierr.New(apierr.Forbidden, "closed"), http.StatusForbidden},
		{apierr.New(apierr.DuplicateKey, "dup"), http.StatusConflict},
		{errors.New("db exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec, _ := render(t, tc.err)
		if rec.Code != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, rec.Code)
		}
	}
}

func TestErrorQuotaAddsUpgradeFlag(t *testing.T) {
	_, body := render(t, apierr.Quota("Trial period expired"))
	if body["error"] != "Trial period expired" || body["upgradeRequired"] != true || body["kind"] != "quota_exceeded" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestErrorRateLimitedSetsRetryAfter(t *testing.T) {
	rec, body := render(t, apierr.Limited(1500*time.Millisecond))
	if rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("expected Retry-After 2, got %q", rec.Header().Get("Retry-After"))
	}
	if body["retryAfterSeconds"] != float64(2) {
		t.Fatalf("unexpected retryAfterSeconds %v", body["retryAfterSeconds"])
	}
}

func TestErrorInternalHidesDetail(t *testing.T) {
	_, body := render(t, errors.New("pq: password authentication failed"))
	if body["error"] != internalMessage {
		t.Fatalf("expected generic message, got %v", body["error"])
	}
}
