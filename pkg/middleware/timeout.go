package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// timeoutWriter buffers nothing but owns its header map, so the handler
// goroutine and the timeout path never touch the same headers.
type timeoutWriter struct {
	w          http.ResponseWriter
	header     http.Header
	mu         sync.Mutex
	timedOut   bool
	written    bool
	statusCode int
}

func (tw *timeoutWriter) Header() http.Header {
	return tw.header
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.writeHeaderLocked(code)
}

func (tw *timeoutWriter) writeHeaderLocked(code int) {
	if tw.timedOut || tw.written {
		return
	}

	dst := tw.w.Header()
	for k, v := range tw.header {
		dst[k] = v
	}
	tw.statusCode = code
	tw.written = true
	tw.w.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	tw.writeHeaderLocked(http.StatusOK)

	return tw.w.Write(b)
}

// RequestTimeout bounds the handler with a context deadline and answers 503
// if nothing was written by then. Panics in the handler are re-raised on the
// serving goroutine so Recovery still sees them.
func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			r = r.WithContext(ctx)

			tw := &timeoutWriter{
				w:      w,
				header: make(http.Header),
			}

			done := make(chan struct{})
			panicked := make(chan any, 1)
			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				next.ServeHTTP(tw, r)
				close(done)
			}()

			select {
			case <-done:
				return
			case p := <-panicked:
				panic(p)
			case <-ctx.Done():
				tw.mu.Lock()
				defer tw.mu.Unlock()
				if !tw.written {
					writeJSONError(w, http.StatusServiceUnavailable, "TIMEOUT", "Request timeout")
					tw.written = true
				}
				tw.timedOut = true
			}
		})
	}
}
