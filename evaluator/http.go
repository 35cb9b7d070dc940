package evaluator

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/kjk/modelrun/kvfile"
)

const mimeKeyValue = "text/plain; charset=utf-8"

// HTTP evaluates a model by POSTing inputs as key=value text to URL.
// The response body is parsed as outputs.
type HTTP struct {
	URL string
	// sent as X-Api-Key header if not empty
	APIKey string
	Header map[string]string
	// default 5 minutes
	Timeout time.Duration
	// default http.DefaultClient
	Client *http.Client
}

func (h *HTTP) Evaluate(ctx context.Context, in *kvfile.Record) (*kvfile.Record, error) {
	d, err := kvfile.Marshal(in)
	if err != nil {
		return nil, err
	}
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var buf bytes.Buffer
	r := requests.
		URL(h.URL).
		Post().
		BodyBytes(d).
		ContentType(mimeKeyValue).
		Accept(mimeKeyValue).
		ToBytesBuffer(&buf)
	if h.Client != nil {
		r = r.Client(h.Client)
	}
	if h.APIKey != "" {
		r = r.Header("X-Api-Key", h.APIKey)
	}
	for k, v := range h.Header {
		r = r.Header(k, v)
	}
	if err = r.Fetch(ctx); err != nil {
		return nil, err
	}
	return kvfile.Parse(buf.Bytes())
}
