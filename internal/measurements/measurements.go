// Package measurements holds the otel helpers shared by the packages that
// record metrics.
package measurements

import (
	"context"
	"errors"
	"os"

	"github.com/ipfs/go-datastore"
	"go.opentelemetry.io/otel/attribute"
)

var (
	AttrStatusSuccess  = attribute.String("status", "success")
	AttrStatusError    = attribute.String("status", "error-other")
	AttrStatusCanceled = attribute.String("status", "error-canceled")
	AttrStatusTimeout  = attribute.String("status", "error-timeout")
	AttrStatusNotFound = attribute.String("status", "error-not-found")
)

// Must panics if err is non-nil, otherwise returns v.
func Must[V any](v V, err error) V {
	if err != nil {
		panic(err)
	}
	return v
}

// Status classifies the outcome of a storage operation as a metric attribute.
func Status(ctx context.Context, err error) attribute.KeyValue {
	switch cErr := ctx.Err(); {
	case err == nil:
		return AttrStatusSuccess
	case errors.Is(err, datastore.ErrNotFound):
		return AttrStatusNotFound
	case os.IsTimeout(err),
		errors.Is(err, os.ErrDeadlineExceeded),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(cErr, context.DeadlineExceeded):
		return AttrStatusTimeout
	case errors.Is(err, context.Canceled),
		errors.Is(cErr, context.Canceled):
		return AttrStatusCanceled
	default:
		return AttrStatusError
	}
}
