// Package httputil serves models over HTTP, the counterpart of
// evaluator.HTTP.
package httputil

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kjk/modelrun/driver"
	"github.com/kjk/modelrun/kvfile"
	"github.com/kjk/modelrun/log"
	"github.com/kjk/modelrun/metrics"
	"github.com/kjk/modelrun/u"
)

const mimeKeyValue = "text/plain; charset=utf-8"

// max size of POSTed inputs
const maxBodySize = 1 << 20

// EvaluatorHandler evaluates key=value inputs POSTed in request body
// and responds with key=value outputs.
type EvaluatorHandler struct {
	Evaluator driver.Evaluator
	// label in logs and metrics
	Name string
	// if set, requests must send it in X-Api-Key header
	APIKey string
}

func (h *EvaluatorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cw := NewCapturingResponseWriter(w)
	timeStart := time.Now()
	h.serve(cw, r)
	log.EventWithDuration("http_evaluate", time.Since(timeStart),
		"ip", GetBestRemoteAddress(r), "status", cw.StatusCode, "size", cw.Size)
}

func (h *EvaluatorHandler) serve(w http.ResponseWriter, r *http.Request) {
	u.PanicIf(h.Evaluator == nil, "EvaluatorHandler.Evaluator not set")
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "only POST is supported", http.StatusMethodNotAllowed)
		return
	}
	if h.APIKey != "" && r.Header.Get("X-Api-Key") != h.APIKey {
		http.Error(w, "invalid api key", http.StatusForbidden)
		return
	}
	in, err := kvfile.Decode(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	name := h.Name
	if name == "" {
		name = "http"
	}
	timeStart := time.Now()
	out, err := h.Evaluator.Evaluate(r.Context(), in)
	metrics.ObserveCase(name, time.Since(timeStart), err)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			log.Errorf("%s: evaluate failed with '%s'\n", name, err)
		}
		http.Error(w, err.Error(), status)
		return
	}
	d, err := kvfile.Marshal(out)
	if err != nil {
		log.Errorf("%s: invalid outputs: '%s'\n", name, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", mimeKeyValue)
	_, _ = w.Write(d)
}

// bad inputs are client errors, everything else is ours
func statusForError(err error) int {
	var maxErr *http.MaxBytesError
	var valErr *kvfile.ValueError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, kvfile.ErrFormat), errors.Is(err, kvfile.ErrMissingKey), errors.As(err, &valErr):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// GetBestRemoteAddress returns IP address of the request even for proxied requests
func GetBestRemoteAddress(r *http.Request) string {
	h := r.Header
	potentials := []string{h.Get("CF-Connecting-IP"), h.Get("X-Real-Ip"), h.Get("X-Forwarded-For"), r.RemoteAddr}
	for _, v := range potentials {
		// sometimes they are stored as "ip1, ip2, ip3" with ip1 being the best
		parts := strings.Split(v, ",")
		res := strings.TrimSpace(parts[0])
		if res != "" {
			return res
		}
	}
	return ""
}
