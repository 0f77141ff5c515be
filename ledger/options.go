package ledger

import (
	"errors"
	"strings"

	"github.com/poolcoord/go-workalloc/internal/encoding"
	"github.com/poolcoord/go-workalloc/workload"
)

// Option represents a configurable parameter of a ledger.
type Option func(*options) error

type options struct {
	namespace string
	compress  bool
}

func newOptions(o ...Option) (*options, error) {
	opts := &options{
		namespace: DefaultNamespace,
	}
	for _, apply := range o {
		if err := apply(opts); err != nil {
			return nil, err
		}
	}
	return opts, nil
}

// WithNamespace sets the key prefix under which entries are stored. Defaults to
// DefaultNamespace.
func WithNamespace(ns string) Option {
	return func(o *options) error {
		ns = strings.TrimSpace(ns)
		if ns == "" || ns == "/" {
			return errors.New("ledger namespace cannot be empty")
		}
		if !strings.HasPrefix(ns, "/") {
			ns = "/" + ns
		}
		o.namespace = strings.TrimSuffix(ns, "/")
		return nil
	}
}

// WithCompression enables zstd compression of stored workloads. Cumulative
// entries of long-lived peers are highly repetitive and compress well.
func WithCompression(enabled bool) Option {
	return func(o *options) error {
		o.compress = enabled
		return nil
	}
}

func (o *options) workloadCodec() (Codec[workload.Units], error) {
	if o.compress {
		return encoding.NewZSTD[workload.Units]()
	}
	return encoding.NewCBOR[workload.Units](), nil
}
