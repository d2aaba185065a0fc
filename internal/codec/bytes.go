package codec

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"unicode/utf8"

	"github.com/mcoot/acctstore/internal/model"
)

// Address family tags used in the V1 flag byte
const (
	familyIPv4 byte = 4
	familyIPv6 byte = 6
)

// writer appends fields to a growing buffer
type writer struct {
	buf []byte
}

func (w *writer) putByte(b byte) {
	w.buf = append(w.buf, b)
}

func (w *writer) putBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// string writes a one-byte length prefix followed by the UTF-8 bytes
func (w *writer) putString(field, s string) error {
	if len(s) > model.MaxNameBytes {
		return fmt.Errorf("%w: %s is %d bytes, limit %d", model.ErrFormat, field, len(s), model.MaxNameBytes)
	}
	w.buf = append(w.buf, byte(len(s)))
	w.buf = append(w.buf, s...)
	return nil
}

func (w *writer) putAddr(a netip.Addr, family byte) {
	switch family {
	case familyIPv4:
		b := a.As4()
		w.buf = append(w.buf, b[:]...)
	default:
		b := a.As16()
		w.buf = append(w.buf, b[:]...)
	}
}

func (w *writer) putInt64(v int64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(v))
}

// reader consumes fields from a byte slice in order
type reader struct {
	data []byte
	off  int
}

func (r *reader) take(field string, n int) ([]byte, error) {
	if len(r.data)-r.off < n {
		return nil, fmt.Errorf("%w: truncated %s at offset %d (need %d bytes, have %d)",
			model.ErrFormat, field, r.off, n, len(r.data)-r.off)
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) readByte(field string) (byte, error) {
	b, err := r.take(field, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) readString(field string) (string, error) {
	n, err := r.readByte(field + " length")
	if err != nil {
		return "", err
	}
	b, err := r.take(field, int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", model.ErrFormat, field)
	}
	return string(b), nil
}

func (r *reader) readAddr(field string, family byte) (netip.Addr, error) {
	switch family {
	case familyIPv4:
		b, err := r.take(field, 4)
		if err != nil {
			return netip.Addr{}, err
		}
		return netip.AddrFrom4([4]byte(b)), nil
	case familyIPv6:
		b, err := r.take(field, 16)
		if err != nil {
			return netip.Addr{}, err
		}
		return netip.AddrFrom16([16]byte(b)), nil
	default:
		return netip.Addr{}, fmt.Errorf("%w: %s has unknown address family %d", model.ErrFormat, field, family)
	}
}

func (r *reader) readInt64(field string) (int64, error) {
	b, err := r.take(field, 8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}
