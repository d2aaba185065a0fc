package accounts

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/acctstore/internal/model"
)

type AccountSuite struct {
	suite.Suite
}

func TestAccountSuite(t *testing.T) {
	suite.Run(t, new(AccountSuite))
}

func (s *AccountSuite) record(version model.FormatVersion) model.AccountRecord {
	return model.AccountRecord{
		Username:     "Alice",
		DisplayName:  "Alice",
		PasswordHash: hashOf(1),
		CreationIP:   aliceIP,
		LastLoginIP:  aliceIP,
		CreationDate: 42,
		Version:      version,
	}
}

func (s *AccountSuite) TestNewAccountIsDetached() {
	acct := newDetached(s.record(model.FormatV1))

	s.Equal(StateDetached, acct.State())
	s.Equal("detached", acct.State().String())
	s.Empty(acct.FileName())
}

func (s *AccountSuite) TestBind() {
	acct := newDetached(s.record(model.FormatV1))
	acct.bind("alice.alice.acc")

	s.Equal(StateBound, acct.State())
	s.Equal("bound", acct.State().String())
	s.Equal("alice.alice.acc", acct.FileName())
}

func (s *AccountSuite) TestNewDetachedCopiesRecord() {
	rec := s.record(model.FormatV1)
	acct := newDetached(rec)

	rec.PasswordHash[0] = 0xFF
	s.Equal(hashOf(1), acct.PasswordHash())
}

func (s *AccountSuite) TestAccessorsReturnCopies() {
	acct := newDetached(s.record(model.FormatV1))

	hash := acct.PasswordHash()
	hash[0] = 0xFF
	s.Equal(hashOf(1), acct.PasswordHash())

	rec := acct.Record()
	rec.PasswordHash[1] = 0xFF
	s.Equal(hashOf(1), acct.PasswordHash())
}

func (s *AccountSuite) TestGetters() {
	acct := newDetached(s.record(model.FormatLegacy))

	s.Equal("Alice", acct.Username())
	s.Equal("Alice", acct.DisplayName())
	s.Equal(aliceIP, acct.CreationIP())
	s.Equal(aliceIP, acct.LastLoginIP())
	s.Equal(model.Ticks(42), acct.CreationDate())
	s.Equal(model.FormatLegacy, acct.FormatVersion())
}

func (s *AccountSuite) TestSetLastLoginIP() {
	acct := newDetached(s.record(model.FormatV1))

	s.Require().NoError(acct.SetLastLoginIP(v6IP))
	s.Equal(v6IP, acct.LastLoginIP())
	s.Equal(aliceIP, acct.CreationIP())
}

func (s *AccountSuite) TestSetLastLoginIPRejectsIPv6InLegacy() {
	acct := newDetached(s.record(model.FormatLegacy))

	err := acct.SetLastLoginIP(v6IP)
	s.ErrorIs(err, model.ErrUnsupportedAddressFamily)
	s.Equal(aliceIP, acct.LastLoginIP())
}

func (s *AccountSuite) TestSetLastLoginIPRejectsZeroAddr() {
	acct := newDetached(s.record(model.FormatV1))

	s.ErrorIs(acct.SetLastLoginIP(netip.Addr{}), model.ErrUnsupportedAddressFamily)
	s.Equal(aliceIP, acct.LastLoginIP())
}

func (s *AccountSuite) TestSetPasswordHash() {
	acct := newDetached(s.record(model.FormatV1))
	next := hashOf(2)

	s.Require().NoError(acct.SetPasswordHash(next))
	next[0] = 0xFF
	s.Equal(hashOf(2), acct.PasswordHash())
}

func (s *AccountSuite) TestSetPasswordHashRejectsWrongLength() {
	acct := newDetached(s.record(model.FormatV1))

	for _, n := range []int{0, 16, 31, 33, 64} {
		err := acct.SetPasswordHash(make([]byte, n))
		s.ErrorIs(err, model.ErrInvalidHashLength)
	}
	s.Equal(hashOf(1), acct.PasswordHash())
}
