package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/acctstore/internal/model"
	"github.com/mcoot/acctstore/internal/services/auth"
)

type CLISuite struct {
	suite.Suite
	dir string
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupTest() {
	for _, key := range []string{envDir, envStorage, envRedisURL, envFormat, envLock, envConfig, envLogFormat, envLogLevel} {
		s.T().Setenv(key, "")
	}
	s.dir = filepath.Join(s.T().TempDir(), "accounts")
}

// run executes acctool in-process against the suite's directory
func (s *CLISuite) run(args ...string) (string, error) {
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--dir", s.dir, "--output", "json"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (s *CLISuite) runView(args ...string) AccountView {
	out, err := s.run(args...)
	s.Require().NoError(err, out)
	var view AccountView
	s.Require().NoError(json.Unmarshal([]byte(out), &view), out)
	return view
}

func (s *CLISuite) TestRegister() {
	view := s.runView("register", "--user", "Alice", "--pass", "hunter2", "--ip", "203.0.113.9")

	s.Equal("Alice", view.Username)
	s.Equal("Alice", view.DisplayName)
	s.Equal("alice.alice.acc", view.File)
	s.Equal("v1", view.Format)
	s.Equal("203.0.113.9", view.CreationIP)
	s.Empty(view.PasswordHash)

	_, err := os.Stat(filepath.Join(s.dir, "alice.alice.acc"))
	s.NoError(err)
}

func (s *CLISuite) TestRegisterCollision() {
	s.runView("register", "--user", "Bob", "--pass", "x")
	s.runView("rename", "Bob", "Carol")

	view := s.runView("register", "--user", "Carol", "--pass", "x")
	s.Equal("Carol_", view.DisplayName)
	s.Equal("carol.carol_.acc", view.File)
}

func (s *CLISuite) TestRegisterDuplicate() {
	s.runView("register", "--user", "Alice", "--pass", "x")

	_, err := s.run("register", "--user", "ALICE", "--pass", "y")
	s.ErrorIs(err, model.ErrDuplicateUsername)
	s.Equal(exitConflict, exitCode(err))
}

func (s *CLISuite) TestLogin() {
	s.runView("register", "--user", "Alice", "--pass", "hunter2")

	view := s.runView("login", "--user", "alice", "--pass", "hunter2", "--ip", "2001:db8::5")
	s.Equal("2001:db8::5", view.LastLoginIP)

	_, err := s.run("login", "--user", "alice", "--pass", "nope")
	s.ErrorIs(err, auth.ErrInvalidCredentials)
	s.Equal(exitBadPassword, exitCode(err))
}

func (s *CLISuite) TestLegacyFormatRejectsIPv6() {
	_, err := s.run("--format", "legacy", "register", "--user", "Alice", "--pass", "x", "--ip", "::1")
	s.ErrorIs(err, model.ErrUnsupportedAddressFamily)
}

func (s *CLISuite) TestPasswd() {
	s.runView("register", "--user", "Alice", "--pass", "old")

	out, err := s.run("passwd", "--user", "Alice", "--old", "old", "--new", "new")
	s.Require().NoError(err)
	s.Contains(out, "Password changed")

	s.runView("login", "--user", "Alice", "--pass", "new")
}

func (s *CLISuite) TestShowRenameDelete() {
	s.runView("register", "--user", "Alice", "--pass", "x")

	view := s.runView("rename", "alice", "Queen")
	s.Equal("alice.queen.acc", view.File)

	view = s.runView("show", "ALICE")
	s.Equal("Queen", view.DisplayName)

	out, err := s.run("delete", "alice")
	s.Require().NoError(err)
	s.Contains(out, "alice.queen.acc")

	_, err = s.run("show", "alice")
	s.ErrorIs(err, model.ErrAccountNotFound)
	s.Equal(exitNotFound, exitCode(err))
}

func (s *CLISuite) TestRenameTaken() {
	s.runView("register", "--user", "Alice", "--pass", "x")
	s.runView("register", "--user", "Bob", "--pass", "x")

	_, err := s.run("rename", "alice", "bob")
	s.ErrorIs(err, model.ErrDisplayNameTaken)
}

func (s *CLISuite) TestList() {
	s.runView("register", "--user", "Carol", "--pass", "x")
	s.runView("register", "--user", "Alice", "--pass", "x")

	out, err := s.run("list")
	s.Require().NoError(err)

	var views []AccountView
	s.Require().NoError(json.Unmarshal([]byte(out), &views))
	s.Require().Len(views, 2)
	s.Equal("Alice", views[0].Username)
	s.Equal("Carol", views[1].Username)
}

func (s *CLISuite) TestInspect() {
	s.runView("register", "--user", "Alice", "--pass", "x", "--ip", "10.0.0.1")
	path := filepath.Join(s.dir, "alice.alice.acc")

	view := s.runView("inspect", path)
	s.Equal("Alice", view.Username)
	s.Equal("10.0.0.1", view.CreationIP)
	s.Len(view.PasswordHash, 2*model.PasswordHashSize)

	_, err := s.run("--format", "legacy", "inspect", path)
	s.ErrorIs(err, model.ErrFormat)
}

func (s *CLISuite) TestConfigFile() {
	other := filepath.Join(s.T().TempDir(), "from-file")
	cfgPath := filepath.Join(s.T().TempDir(), "acctool.yaml")
	s.Require().NoError(os.WriteFile(cfgPath, []byte("dir: "+other+"\nformat: legacy\nlock: true\n"), 0o600))

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath, "--output", "json", "register", "--user", "Alice", "--pass", "x"})
	s.Require().NoError(cmd.Execute(), out.String())

	var view AccountView
	s.Require().NoError(json.Unmarshal(out.Bytes(), &view))
	s.Equal("legacy", view.Format)

	_, err := os.Stat(filepath.Join(other, "alice.alice.acc"))
	s.NoError(err)
}

func (s *CLISuite) TestFlagBeatsConfigFile() {
	cfgPath := filepath.Join(s.T().TempDir(), "acctool.yaml")
	s.Require().NoError(os.WriteFile(cfgPath, []byte("format: legacy\n"), 0o600))

	view := s.runView("--config", cfgPath, "--format", "v1", "register", "--user", "Alice", "--pass", "x")
	s.Equal("v1", view.Format)
}

func (s *CLISuite) TestMissingExplicitConfigFile() {
	_, err := s.run("--config", filepath.Join(s.T().TempDir(), "absent.yaml"), "list")
	s.Error(err)
}

func (s *CLISuite) TestUnknownFormat() {
	_, err := s.run("--format", "v9", "list")
	s.ErrorIs(err, model.ErrUnknownFormat)
}
