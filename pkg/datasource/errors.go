package datasource

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/richard-senior/footy/pkg/transport"
)

// FetchError describes a failed call to an external source.
// It never leaves this package: public methods log it and return defaults.
type FetchError struct {
	Op     string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// RateLimited reports whether the upstream answered 429
func (e *FetchError) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

func newFetchError(op string, err error) *FetchError {
	fe := &FetchError{Op: op, Err: err}
	var se *transport.StatusError
	if errors.As(err, &se) {
		fe.Status = se.Status
	}
	return fe
}
