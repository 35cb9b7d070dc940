package main

import (
	"context"
	"flag"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjk/modelrun/httputil"
	"github.com/kjk/modelrun/solar"
)

// serve exposes the solar model on /evaluate so that studies on other
// machines can use it with the http evaluator
func cmdServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", "localhost:8080", "address to listen on")
	apiKeyEnv := fs.String("api-key-env", "", "if set, name of env variable with api key required from clients")
	if _, err := parseFlags(fs, args, 0); err != nil {
		return err
	}
	h := &httputil.EvaluatorHandler{
		Evaluator: solar.Evaluator(solar.Placeholder),
		Name:      "solar",
	}
	if *apiKeyEnv != "" {
		h.APIKey = os.Getenv(*apiKeyEnv)
	}
	mux := http.NewServeMux()
	mux.Handle("/evaluate", h)
	mux.Handle("/metrics", promhttp.Handler())
	srv := httputil.NewServer(*addr, mux)
	return httputil.ListenAndServe(ctx, srv)
}
