package middleware

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

var timeoutBody = []byte(`{"message":"request exceeded the time limit"}` + "\n")

// RequestTimeout bounds each request with a context deadline. Handlers see
// the deadline through the request context, which also bounds slot-lock
// waits and database calls. If the handler has written nothing when the
// deadline passes, a 504 is sent and anything the handler writes afterwards
// is discarded. The middleware always waits for the handler to return so
// the echo.Context is never used after it goes back to the pool.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if timeout <= 0 {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			res := c.Response()
			dst := res.Writer
			tw := newTimeoutWriter(dst)
			res.Writer = tw
			defer func() { res.Writer = dst }()

			done := make(chan error, 1)
			panicked := make(chan any, 1)
			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				done <- next(c)
			}()

			select {
			case err := <-done:
				tw.release()
				return err
			case p := <-panicked:
				tw.release()
				panic(p)
			case <-ctx.Done():
			}

			sent := errors.Is(ctx.Err(), context.DeadlineExceeded) && tw.timeout()

			// The handler still owns c; wait for it to observe the
			// cancelled context and return.
			var err error
			select {
			case err = <-done:
			case p := <-panicked:
				if !sent {
					tw.release()
				}
				res.Committed = res.Committed || sent
				panic(p)
			}
			if !sent {
				tw.release()
				return err
			}
			res.Status = http.StatusGatewayTimeout
			res.Size = int64(len(timeoutBody))
			res.Committed = true
			return nil
		}
	}
}

// timeoutWriter gives the handler its own header map and drops its writes
// once the timeout response has been sent.
type timeoutWriter struct {
	dst http.ResponseWriter
	h   http.Header

	mu          sync.Mutex
	wroteHeader bool
	timedOut    bool
}

func newTimeoutWriter(dst http.ResponseWriter) *timeoutWriter {
	return &timeoutWriter{dst: dst, h: dst.Header().Clone()}
}

func (w *timeoutWriter) Header() http.Header { return w.h }

func (w *timeoutWriter) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writeHeaderLocked(code)
}

func (w *timeoutWriter) writeHeaderLocked(code int) {
	if w.timedOut || w.wroteHeader {
		return
	}
	w.wroteHeader = true
	dh := w.dst.Header()
	for k, v := range w.h {
		dh[k] = v
	}
	w.dst.WriteHeader(code)
}

func (w *timeoutWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if !w.wroteHeader {
		w.writeHeaderLocked(http.StatusOK)
	}
	return w.dst.Write(b)
}

// release hands headers the handler set without writing a response back
// to the underlying writer, so the error handler sends them.
func (w *timeoutWriter) release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.wroteHeader || w.timedOut {
		return
	}
	dh := w.dst.Header()
	for k, v := range w.h {
		dh[k] = v
	}
}

// timeout sends the 504 unless the handler already started its response.
// It reports whether the 504 was sent.
func (w *timeoutWriter) timeout() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.wroteHeader {
		return false
	}
	w.timedOut = true
	w.dst.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	w.dst.WriteHeader(http.StatusGatewayTimeout)
	_, _ = w.dst.Write(timeoutBody)
	return true
}
