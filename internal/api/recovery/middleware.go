package recovery

import (
	"errors"
	"fmt"
	"net/http"

	pkgerrors "github.com/pkg/errors"

	"github.com/goibibo/mem0/internal/api/respond"
)

// Middleware turns a handler panic into a logged 500 response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := panicError(recover()); err != nil {
				respond.WriteFailure(w, r, err, "panic recovered")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// panicError converts a recovered value into an error carrying the stack of the
// panicking goroutine. http.ErrAbortHandler is re-raised for net/http to handle.
func panicError(rec interface{}) error {
	switch v := rec.(type) {
	case nil:
		return nil
	case error:
		if errors.Is(v, http.ErrAbortHandler) {
			panic(v)
		}
		return pkgerrors.WithStack(fmt.Errorf("panic: %w", v))
	default:
		return pkgerrors.Errorf("panic: %v", v)
	}
}
