package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjk/modelrun/atomicfile"
	"github.com/kjk/modelrun/config"
	"github.com/kjk/modelrun/driver"
	"github.com/kjk/modelrun/export"
	"github.com/kjk/modelrun/httputil"
	"github.com/kjk/modelrun/journal"
	"github.com/kjk/modelrun/kvfile"
	"github.com/kjk/modelrun/log"
)

func cmdStudy(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("study", flag.ContinueOnError)
	configPath := fs.String("config", "", "study definition (.yaml)")
	metricsAddr := fs.String("metrics-addr", "", "if set, serve prometheus metrics on this address")
	csvPath := fs.String("csv", "", "if set, write all cases to this .csv file")
	if _, err := parseFlags(fs, args, 0); err != nil {
		return err
	}
	if *configPath == "" {
		return fmt.Errorf("%w: study: missing -config", errUsage)
	}
	study, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	base, err := study.BaseRecord()
	if err != nil {
		return err
	}

	if *metricsAddr != "" {
		srv := serveMetrics(*metricsAddr)
		defer srv.Close()
	}

	opts := &driver.Options{
		Name:     study.RunName(),
		MaxCases: study.MaxCases,
	}
	if study.Cache {
		opts.Cache = driver.NewCache()
	}
	if study.Journal != "" {
		path := study.Path(study.Journal)
		if opts.Cache != nil {
			n, err := opts.Cache.LoadJournal(path)
			if err != nil {
				return err
			}
			log.Verbosef("loaded %d cached cases from '%s'\n", n, path)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		opts.Journal = journal.NewWriter(f)
	}

	ev := study.NewEvaluator()
	defer func() {
		log.IfErrf(config.CloseEvaluator(ev))
	}()

	res, runErr := driver.Run(ctx, study.NewDriver(), ev, base, opts)
	if res != nil && len(res.Cases) > 0 {
		if err := printSummary(stdout, res); err != nil {
			return err
		}
		if *csvPath != "" {
			if err := writeCSV(*csvPath, res); err != nil {
				return errors.Join(runErr, err)
			}
		}
	}
	return runErr
}

func printSummary(w io.Writer, res *driver.Result) error {
	fmt.Fprintf(w, "%s\n", res)
	if last := res.Last(); last != nil && last.Out != nil {
		fmt.Fprintf(w, "last case %d:\n%s", last.N, last.In)
		fmt.Fprintf(w, "=>\n%s", last.Out)
	}
	keys := res.OutputKeys()
	stats := driver.StatsRecord(res.Stats(keys...), keys)
	if stats.Len() == 0 {
		return nil
	}
	fmt.Fprintf(w, "stats:\n")
	return kvfile.Encode(w, stats)
}

func writeCSV(path string, res *driver.Result) error {
	var buf bytes.Buffer
	if err := export.CasesCSV(&buf, res); err != nil {
		return err
	}
	return atomicfile.WriteFile(path, buf.Bytes())
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := httputil.NewServer(addr, mux)
	go func() {
		log.Logf("serving metrics on http://%s/metrics\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server failed with '%s'", err)
		}
	}()
	return srv
}
