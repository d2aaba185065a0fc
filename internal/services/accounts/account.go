package accounts

import (
	"fmt"
	"net/netip"
	"slices"

	"github.com/mcoot/acctstore/internal/codec"
	"github.com/mcoot/acctstore/internal/model"
)

// State tells whether an Account has been written to a file yet
type State int

const (
	// StateDetached accounts exist only in memory
	StateDetached State = iota
	// StateBound accounts have a file they persist to
	StateBound
)

func (s State) String() string {
	if s == StateBound {
		return "bound"
	}
	return "detached"
}

// Account is a live handle on one account file.
//
// Setters only change the in-memory record; call Store.Persist to write the
// change. Display names change through Store.Rename because the file name
// depends on them.
type Account struct {
	record   model.AccountRecord
	fileName string
	state    State
}

func newDetached(rec model.AccountRecord) *Account {
	return &Account{record: rec.Clone(), state: StateDetached}
}

// bind attaches the account to a file after a successful write. An account
// is bound at most once and never becomes detached again.
func (a *Account) bind(fileName string) {
	a.fileName = fileName
	a.state = StateBound
}

func (a *Account) Username() string {
	return a.record.Username
}

func (a *Account) DisplayName() string {
	return a.record.DisplayName
}

// PasswordHash returns a copy of the stored hash
func (a *Account) PasswordHash() []byte {
	return slices.Clone(a.record.PasswordHash)
}

func (a *Account) CreationIP() netip.Addr {
	return a.record.CreationIP
}

func (a *Account) LastLoginIP() netip.Addr {
	return a.record.LastLoginIP
}

func (a *Account) CreationDate() model.Ticks {
	return a.record.CreationDate
}

func (a *Account) FormatVersion() model.FormatVersion {
	return a.record.Version
}

// Record returns a deep copy of the underlying record
func (a *Account) Record() model.AccountRecord {
	return a.record.Clone()
}

// FileName is the base name of the bound file, empty while detached
func (a *Account) FileName() string {
	return a.fileName
}

func (a *Account) State() State {
	return a.state
}

// SetLastLoginIP records the address of the latest login. The address must
// be storable in the account's file format.
func (a *Account) SetLastLoginIP(addr netip.Addr) error {
	if _, err := codec.AddressFamily(addr, a.record.Version); err != nil {
		return err
	}
	a.record.LastLoginIP = addr
	return nil
}

// SetPasswordHash replaces the password hash, which must be exactly
// model.PasswordHashSize bytes.
func (a *Account) SetPasswordHash(hash []byte) error {
	if len(hash) != model.PasswordHashSize {
		return fmt.Errorf("%w: got %d bytes", model.ErrInvalidHashLength, len(hash))
	}
	a.record.PasswordHash = slices.Clone(hash)
	return nil
}
