package httputil

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/kjk/modelrun/log"
)

// NewServer returns a server with timeouts long enough for slow models
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       120 * time.Second,
		WriteTimeout:      30 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
}

// Serve runs srv on ln until ctx is cancelled, then shuts it down,
// giving in-flight requests up to 5 seconds to finish
func Serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	chErr := make(chan error, 1)
	go func() {
		err := srv.Serve(ln)
		// mute error caused by Shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		chErr <- err
	}()

	select {
	case err := <-chErr:
		return err
	case <-ctx.Done():
	}
	log.Logf("shutting down server on %s\n", ln.Addr())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-chErr
}

// ListenAndServe is Serve on a listener for srv.Addr
func ListenAndServe(ctx context.Context, srv *http.Server) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	log.Logf("listening on http://%s\n", ln.Addr())
	return Serve(ctx, srv, ln)
}
