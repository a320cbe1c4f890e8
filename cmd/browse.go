package cmd

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cli/go-gh/v2/pkg/browser"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/logging"
)

// chartServeTimeout bounds how long a chart stays available to the browser
const chartServeTimeout = 30 * time.Second

// launcher opens a URL in the user's browser
type launcher interface {
	Browse(url string) error
}

// openChart serves the chart at path on a loopback port until the browser has
// fetched it once, because the browser launcher refuses local file paths.
func openChart(ctx context.Context, path string, out, errOut io.Writer) error {
	return serveChart(ctx, path, browser.New("", out, errOut), chartServeTimeout)
}

func serveChart(ctx context.Context, path string, l launcher, timeout time.Duration) error {
	page, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to read chart")
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeNetwork, "failed to listen for chart viewer")
	}

	served := make(chan struct{})
	var once sync.Once

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
		once.Do(func() { close(served) })
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logging.WithError(err).Warn("Chart viewer stopped")
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	target := "http://" + listener.Addr().String() + "/"
	if err := l.Browse(target); err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to launch browser")
	}

	select {
	case <-served:
	case <-time.After(timeout):
		logging.WithField("url", target).Warn("Browser did not fetch the chart in time")
	case <-ctx.Done():
	}

	return nil
}
