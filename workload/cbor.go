package workload

import (
	"fmt"
	"io"

	cbg "github.com/whyrusleeping/cbor-gen"
)

const (
	// MaxUnits bounds the number of units decoded from a single CBOR array.
	MaxUnits = 1 << 20
	// MaxUnitSize bounds the payload length of a single decoded unit.
	MaxUnitSize = cbg.ByteArrayMaxLen
)

var (
	_ cbg.CBORMarshaler   = Units(nil)
	_ cbg.CBORUnmarshaler = (*Units)(nil)
)

// MarshalCBOR encodes w as a CBOR array of byte strings.
func (w Units) MarshalCBOR(out io.Writer) error {
	cw := cbg.NewCborWriter(out)
	if len(w) > MaxUnits {
		return fmt.Errorf("workload too large to encode: %d units", len(w))
	}
	if err := cw.WriteMajorTypeHeader(cbg.MajArray, uint64(len(w))); err != nil {
		return err
	}
	for i, u := range w {
		if len(u) > MaxUnitSize {
			return fmt.Errorf("unit %d too large to encode: %d bytes", i, len(u))
		}
		if err := cw.WriteMajorTypeHeader(cbg.MajByteString, uint64(len(u))); err != nil {
			return err
		}
		if _, err := cw.Write(u); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalCBOR decodes a CBOR array of byte strings into w, replacing its
// contents.
func (w *Units) UnmarshalCBOR(in io.Reader) (err error) {
	*w = nil
	cr := cbg.NewCborReader(in)

	maj, extra, err := cr.ReadHeader()
	if err != nil {
		return err
	}
	defer func() {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
	}()
	if maj != cbg.MajArray {
		return fmt.Errorf("cbor input for workload was not an array (%d)", maj)
	}
	if extra > MaxUnits {
		return fmt.Errorf("workload array too large: %d", extra)
	}
	if extra == 0 {
		return nil
	}

	units := make(Units, 0, extra)
	for i := uint64(0); i < extra; i++ {
		maj, l, err := cr.ReadHeader()
		if err != nil {
			return err
		}
		if maj != cbg.MajByteString {
			return fmt.Errorf("expected byte string for unit %d, got major type %d", i, maj)
		}
		if l > MaxUnitSize {
			return fmt.Errorf("unit %d too large: %d bytes", i, l)
		}
		u := make(Unit, l)
		if _, err := io.ReadFull(cr, u); err != nil {
			return err
		}
		units = append(units, u)
	}
	*w = units
	return nil
}
