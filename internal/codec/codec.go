// Package codec translates account records to and from their on-disk bytes.
//
// Two layouts exist. The legacy layout has no version byte and stores IPv4
// addresses only:
//
//	[1] username length n, [n] username
//	[1] display name length m, [m] display name
//	[32] password hash
//	[4] creation IP, [4] last login IP
//	[8] creation ticks, little-endian
//
// The V1 layout starts with a version byte (1) and adds a flag byte before the
// addresses whose high nibble is the creation address family and whose low
// nibble is the last login address family (4 or 6). Each address is then 4 or
// 16 bytes long.
//
// The layout is never guessed from the data: a legacy file whose username is
// one byte long is indistinguishable from a V1 header, so callers always say
// which version they expect.
package codec

import (
	"fmt"
	"net/netip"

	"github.com/mcoot/acctstore/internal/model"
)

// v1Tag is the first byte of every V1 file
const v1Tag byte = 1

// Encode serializes rec using the given layout
func Encode(rec model.AccountRecord, version model.FormatVersion) ([]byte, error) {
	if version != model.FormatLegacy && version != model.FormatV1 {
		return nil, fmt.Errorf("%w: %d", model.ErrUnknownFormat, version)
	}
	if len(rec.PasswordHash) != model.PasswordHashSize {
		return nil, fmt.Errorf("%w: got %d bytes", model.ErrInvalidHashLength, len(rec.PasswordHash))
	}

	creationFamily, err := AddressFamily(rec.CreationIP, version)
	if err != nil {
		return nil, fmt.Errorf("creation IP: %w", err)
	}
	lastLoginFamily, err := AddressFamily(rec.LastLoginIP, version)
	if err != nil {
		return nil, fmt.Errorf("last login IP: %w", err)
	}

	w := &writer{buf: make([]byte, 0, encodedSize(rec, creationFamily, lastLoginFamily, version))}

	if version == model.FormatV1 {
		w.putByte(v1Tag)
	}
	if err := w.putString("username", rec.Username); err != nil {
		return nil, err
	}
	if err := w.putString("display name", rec.DisplayName); err != nil {
		return nil, err
	}
	w.putBytes(rec.PasswordHash)
	if version == model.FormatV1 {
		w.putByte(creationFamily<<4 | lastLoginFamily)
	}
	w.putAddr(rec.CreationIP, creationFamily)
	w.putAddr(rec.LastLoginIP, lastLoginFamily)
	w.putInt64(int64(rec.CreationDate))

	return w.buf, nil
}

// Decode parses data laid out in the given version
func Decode(data []byte, version model.FormatVersion) (model.AccountRecord, error) {
	if version != model.FormatLegacy && version != model.FormatV1 {
		return model.AccountRecord{}, fmt.Errorf("%w: %d", model.ErrUnknownFormat, version)
	}

	r := &reader{data: data}
	rec := model.AccountRecord{Version: version}

	if version == model.FormatV1 {
		v, err := r.readByte("format version")
		if err != nil {
			return model.AccountRecord{}, err
		}
		if v != v1Tag {
			return model.AccountRecord{}, fmt.Errorf("%w: version byte %d, want %d", model.ErrFormat, v, v1Tag)
		}
	}

	var err error
	if rec.Username, err = r.readString("username"); err != nil {
		return model.AccountRecord{}, err
	}
	if rec.DisplayName, err = r.readString("display name"); err != nil {
		return model.AccountRecord{}, err
	}

	hash, err := r.take("password hash", model.PasswordHashSize)
	if err != nil {
		return model.AccountRecord{}, err
	}
	rec.PasswordHash = append([]byte(nil), hash...)

	creationFamily, lastLoginFamily := familyIPv4, familyIPv4
	if version == model.FormatV1 {
		flags, err := r.readByte("address flags")
		if err != nil {
			return model.AccountRecord{}, err
		}
		creationFamily, lastLoginFamily = flags>>4, flags&0x0f
	}

	if rec.CreationIP, err = r.readAddr("creation IP", creationFamily); err != nil {
		return model.AccountRecord{}, err
	}
	if rec.LastLoginIP, err = r.readAddr("last login IP", lastLoginFamily); err != nil {
		return model.AccountRecord{}, err
	}

	ticks, err := r.readInt64("creation date")
	if err != nil {
		return model.AccountRecord{}, err
	}
	rec.CreationDate = model.Ticks(ticks)

	if n := r.remaining(); n != 0 {
		return model.AccountRecord{}, fmt.Errorf("%w: %d trailing bytes", model.ErrFormat, n)
	}

	return rec, nil
}

// AddressFamily returns the flag nibble for a, or ErrUnsupportedAddressFamily
// when the layout cannot store it. IPv4-mapped IPv6 addresses are family 6 so
// that their 16 bytes survive a round trip.
func AddressFamily(a netip.Addr, version model.FormatVersion) (byte, error) {
	switch {
	case a.Is4():
		return familyIPv4, nil
	case a.Is6() && a.Zone() != "":
		return 0, fmt.Errorf("%w: zoned address %s", model.ErrUnsupportedAddressFamily, a)
	case a.Is6() && version == model.FormatV1:
		return familyIPv6, nil
	case a.Is6():
		return 0, fmt.Errorf("%w: %s in %s layout", model.ErrUnsupportedAddressFamily, a, version)
	default:
		return 0, fmt.Errorf("%w: %v", model.ErrUnsupportedAddressFamily, a)
	}
}

func encodedSize(rec model.AccountRecord, creationFamily, lastLoginFamily byte, version model.FormatVersion) int {
	n := 1 + len(rec.Username) + 1 + len(rec.DisplayName) + model.PasswordHashSize + 8
	n += addrSize(creationFamily) + addrSize(lastLoginFamily)
	if version == model.FormatV1 {
		n += 2
	}
	return n
}

func addrSize(family byte) int {
	if family == familyIPv4 {
		return 4
	}
	return 16
}
