package httputil

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert"

	"github.com/kjk/modelrun/driver"
	"github.com/kjk/modelrun/evaluator"
	"github.com/kjk/modelrun/kvfile"
)

// doubles x
var doubler = driver.EvaluatorFunc(func(ctx context.Context, in *kvfile.Record) (*kvfile.Record, error) {
	x, err := in.Float("x")
	if err != nil {
		return nil, err
	}
	out := kvfile.New()
	out.Set("y", x*2)
	return out, nil
})

var failing = driver.EvaluatorFunc(func(ctx context.Context, in *kvfile.Record) (*kvfile.Record, error) {
	return nil, errors.New("model crashed")
})

func post(t *testing.T, h http.Handler, body string, apiKey string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader(body))
	if apiKey != "" {
		r.Header.Set("X-Api-Key", apiKey)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestEvaluatorHandler(t *testing.T) {
	h := &EvaluatorHandler{Evaluator: doubler, Name: "test"}
	w := post(t, h, "x=2.5\n", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "y=5.0\n", w.Body.String())
	assert.Equal(t, mimeKeyValue, w.Header().Get("Content-Type"))

	tests := []struct {
		body   string
		status int
	}{
		{"x\n", http.StatusBadRequest},
		{"y=1\n", http.StatusBadRequest},
		{"x=abc\n", http.StatusBadRequest},
	}
	for _, test := range tests {
		w = post(t, h, test.body, "")
		assert.Equal(t, test.status, w.Code, "%q", test.body)
	}

	h = &EvaluatorHandler{Evaluator: failing}
	w = post(t, h, "x=1\n", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestEvaluatorHandlerMethodAndKey(t *testing.T) {
	h := &EvaluatorHandler{Evaluator: doubler, APIKey: "secret"}
	r := httptest.NewRequest(http.MethodGet, "/evaluate", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = post(t, h, "x=1\n", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = post(t, h, "x=1\n", "wrong")
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = post(t, h, "x=1\n", "secret")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTTPEvaluatorRoundtrip(t *testing.T) {
	srv := httptest.NewServer(&EvaluatorHandler{Evaluator: doubler, APIKey: "k"})
	defer srv.Close()
	ev := &evaluator.HTTP{URL: srv.URL, APIKey: "k", Client: srv.Client()}
	in, _ := kvfile.FromPairs("x", 21)
	out, err := ev.Evaluate(context.Background(), in)
	assert.NoError(t, err)
	y, err := out.Float("y")
	assert.NoError(t, err)
	assert.Equal(t, 42.0, y)

	in, _ = kvfile.FromPairs("z", 1)
	_, err = ev.Evaluate(context.Background(), in)
	assert.Error(t, err)
}

func TestCapturingResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewCapturingResponseWriter(rec)
	_, _ = w.Write([]byte("hello"))
	assert.Equal(t, http.StatusOK, w.StatusCode)
	assert.Equal(t, int64(5), w.Size)

	w = NewCapturingResponseWriter(httptest.NewRecorder())
	w.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusTeapot, w.StatusCode)
}

func TestGetBestRemoteAddress(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1:1234", GetBestRemoteAddress(r))
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	assert.Equal(t, "1.2.3.4", GetBestRemoteAddress(r))
	r.Header.Set("CF-Connecting-IP", "5.6.7.8")
	assert.Equal(t, "5.6.7.8", GetBestRemoteAddress(r))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	srv := NewServer(ln.Addr().String(), &EvaluatorHandler{Evaluator: doubler})
	ctx, cancel := context.WithCancel(context.Background())
	chErr := make(chan error, 1)
	go func() {
		chErr <- Serve(ctx, srv, ln)
	}()

	ev := &evaluator.HTTP{URL: "http://" + ln.Addr().String() + "/evaluate"}
	in, _ := kvfile.FromPairs("x", 1)
	out, err := ev.Evaluate(context.Background(), in)
	assert.NoError(t, err)
	assert.Equal(t, "y=2.0\n", out.String())

	cancel()
	select {
	case err = <-chErr:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server didn't shut down")
	}
}
