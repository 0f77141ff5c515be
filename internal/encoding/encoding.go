// Package encoding provides the byte codecs used to persist ledger values.
package encoding

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	cbg "github.com/whyrusleeping/cbor-gen"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// maxDecompressedSize is the maximum amount of memory allocated by the zstd
// decoder for a single value. Cumulative ledger entries of a busy peer grow
// large, hence the generous 64MiB limit.
const maxDecompressedSize = 64 << 20

type CBORMarshalUnmarshaler interface {
	cbg.CBORMarshaler
	cbg.CBORUnmarshaler
}

// Codec converts values of type V to and from bytes.
type Codec[V any] interface {
	Encode(v V) ([]byte, error)
	Decode([]byte) (V, error)
}

// CBOR encodes values whose pointer type knows how to marshal itself to CBOR.
type CBOR[V any, PV interface {
	*V
	CBORMarshalUnmarshaler
}] struct{}

func NewCBOR[V any, PV interface {
	*V
	CBORMarshalUnmarshaler
}]() *CBOR[V, PV] {
	return &CBOR[V, PV]{}
}

func (c *CBOR[V, PV]) Encode(v V) (_ []byte, _err error) {
	defer func(start time.Time) {
		recordTime(attrCodecCbor, attrActionEncode, start, _err)
	}(time.Now())
	var buf bytes.Buffer
	if err := PV(&v).MarshalCBOR(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *CBOR[V, PV]) Decode(b []byte) (_ V, _err error) {
	defer func(start time.Time) {
		recordTime(attrCodecCbor, attrActionDecode, start, _err)
	}(time.Now())
	var v V
	if err := PV(&v).UnmarshalCBOR(bytes.NewReader(b)); err != nil {
		return v, err
	}
	return v, nil
}

// ZSTD wraps CBOR encoding with zstd compression.
type ZSTD[V any, PV interface {
	*V
	CBORMarshalUnmarshaler
}] struct {
	cborEncoding *CBOR[V, PV]
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
}

func NewZSTD[V any, PV interface {
	*V
	CBORMarshalUnmarshaler
}]() (*ZSTD[V, PV], error) {
	writer, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	reader, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecompressedSize))
	if err != nil {
		return nil, err
	}
	return &ZSTD[V, PV]{
		cborEncoding: &CBOR[V, PV]{},
		compressor:   writer,
		decompressor: reader,
	}, nil
}

func (c *ZSTD[V, PV]) Encode(v V) (_ []byte, _err error) {
	defer func(start time.Time) {
		recordTime(attrCodecZstd, attrActionEncode, start, _err)
	}(time.Now())
	cborEncoded, err := c.cborEncoding.Encode(v)
	if err != nil {
		return nil, err
	}
	if len(cborEncoded) > maxDecompressedSize {
		// Error out early if the encoded value is too large to be decompressed.
		return nil, fmt.Errorf("encoded value cannot exceed maximum size: %d > %d", len(cborEncoded), maxDecompressedSize)
	}
	compressed := c.compressor.EncodeAll(cborEncoded, make([]byte, 0, len(cborEncoded)))
	if len(cborEncoded) > 0 {
		metrics.zstdCompressionRatio.Record(context.Background(), float64(len(compressed))/float64(len(cborEncoded)))
	}
	return compressed, nil
}

func (c *ZSTD[V, PV]) Decode(b []byte) (_ V, _err error) {
	defer func(start time.Time) {
		recordTime(attrCodecZstd, attrActionDecode, start, _err)
	}(time.Now())
	cborEncoded, err := c.decompressor.DecodeAll(b, make([]byte, 0, len(b)))
	if err != nil {
		var zero V
		return zero, err
	}
	return c.cborEncoding.Decode(cborEncoded)
}

func recordTime(codec, action attribute.KeyValue, start time.Time, err error) {
	metrics.encodingTime.Record(context.Background(), time.Since(start).Seconds(),
		metric.WithAttributes(codec, action, attrSuccessFromErr(err)))
}
