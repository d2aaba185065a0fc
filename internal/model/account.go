package model

import (
	"net/netip"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// FormatVersion identifies the on-disk layout of an account file
type FormatVersion uint8

const (
	// FormatUnset is the zero value; stores replace it with DefaultFormat
	FormatUnset FormatVersion = iota
	// FormatLegacy has no version byte and stores IPv4 addresses only
	FormatLegacy
	// FormatV1 starts with a version byte and carries address-family flags
	FormatV1

	// DefaultFormat is the layout new stores write
	DefaultFormat = FormatV1
)

// String returns the name used for the version in config and CLI flags
func (v FormatVersion) String() string {
	switch v {
	case FormatLegacy:
		return "legacy"
	case FormatV1:
		return "v1"
	case FormatUnset:
		return "unset"
	default:
		return "unknown"
	}
}

// OrDefault returns DefaultFormat for FormatUnset and v otherwise
func (v FormatVersion) OrDefault() FormatVersion {
	if v == FormatUnset {
		return DefaultFormat
	}
	return v
}

// ParseFormatVersion parses the names produced by FormatVersion.String
func ParseFormatVersion(s string) (FormatVersion, error) {
	switch strings.ToLower(s) {
	case "legacy", "0":
		return FormatLegacy, nil
	case "v1", "1", "":
		return FormatV1, nil
	default:
		return 0, ErrUnknownFormat
	}
}

const (
	// PasswordHashSize is the fixed size of the password hash slot
	PasswordHashSize = 32
	// MaxNameBytes is the largest name a one-byte length prefix can describe
	MaxNameBytes = 255
	// FileExtension is appended to every account file name
	FileExtension = ".acc"
)

// AccountRecord is the persisted form of a user account
type AccountRecord struct {
	Username     string // immutable, case-insensitive for lookups
	DisplayName  string // unique per directory, case-insensitive
	PasswordHash []byte // exactly PasswordHashSize bytes once initialized
	CreationIP   netip.Addr
	LastLoginIP  netip.Addr
	CreationDate Ticks
	Version      FormatVersion
}

// Clone returns a deep copy of the record
func (r AccountRecord) Clone() AccountRecord {
	if r.PasswordHash != nil {
		r.PasswordHash = append([]byte(nil), r.PasswordHash...)
	}
	return r
}

// Ticks counts 100ns intervals since 0001-01-01T00:00:00Z
type Ticks int64

const (
	ticksPerSecond = int64(time.Second / 100)
	// seconds between 0001-01-01 and the Unix epoch
	unixEpochSeconds = int64(62135596800)
)

// TicksFromTime converts t to ticks, truncating below 100ns
func TicksFromTime(t time.Time) Ticks {
	t = t.UTC()
	return Ticks((t.Unix()+unixEpochSeconds)*ticksPerSecond + int64(t.Nanosecond())/100)
}

// Time returns the instant the tick count represents, in UTC
func (t Ticks) Time() time.Time {
	sec := int64(t) / ticksPerSecond
	rem := int64(t) % ticksPerSecond
	return time.Unix(sec-unixEpochSeconds, rem*100).UTC()
}

// FoldName returns the case-folded form used in file names and lookups
func FoldName(name string) string {
	return strings.ToLower(name)
}

// AccountFileName returns "<username>.<displayname>.acc", both folded
func AccountFileName(username, displayName string) string {
	return FoldName(username) + "." + FoldName(displayName) + FileExtension
}

// ValidateName checks that a username or display name can be stored and used
// as a literal file name component.
func ValidateName(name string) error {
	if name == "" {
		return ErrInvalidName
	}
	if !utf8.ValidString(name) {
		return ErrInvalidName
	}
	if len(name) > MaxNameBytes || len(FoldName(name)) > MaxNameBytes {
		return ErrInvalidName
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return ErrInvalidName
		}
		switch r {
		case '.', '/', '\\', '*', '?', '[', ']':
			return ErrInvalidName
		}
	}
	return nil
}
