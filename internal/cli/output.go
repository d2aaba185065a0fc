package cli

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mcoot/acctstore/internal/model"
	"github.com/mcoot/acctstore/internal/services/accounts"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	out    io.Writer
	errOut io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, out, errOut io.Writer) *Output {
	return &Output{format: format, out: out, errOut: errOut}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(o.errOut, string(data))
	} else {
		fmt.Fprintf(o.errOut, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.out, string(data))
	} else {
		fmt.Fprintln(o.out, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case AccountView:
		o.printAccount(v)
	case []AccountView:
		o.printAccountList(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// AccountView is the printable form of an account
type AccountView struct {
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	File         string    `json:"file,omitempty"`
	Format       string    `json:"format"`
	CreationIP   string    `json:"creation_ip"`
	LastLoginIP  string    `json:"last_login_ip"`
	Created      time.Time `json:"created"`
	CreatedTicks int64     `json:"created_ticks"`
	PasswordHash string    `json:"password_hash,omitempty"`
}

func newAccountView(acct *accounts.Account) AccountView {
	v := newRecordView(acct.Record())
	v.File = acct.FileName()
	v.PasswordHash = ""
	return v
}

func newRecordView(rec model.AccountRecord) AccountView {
	return AccountView{
		Username:     rec.Username,
		DisplayName:  rec.DisplayName,
		Format:       rec.Version.String(),
		CreationIP:   rec.CreationIP.String(),
		LastLoginIP:  rec.LastLoginIP.String(),
		Created:      rec.CreationDate.Time(),
		CreatedTicks: int64(rec.CreationDate),
		PasswordHash: hex.EncodeToString(rec.PasswordHash),
	}
}

func (o *Output) printAccount(a AccountView) {
	fmt.Fprintf(o.out, "Account: %s (%s)\n", a.DisplayName, a.Username)
	if a.File != "" {
		fmt.Fprintf(o.out, "File: %s\n", a.File)
	}
	fmt.Fprintf(o.out, "Format: %s\n", a.Format)
	fmt.Fprintf(o.out, "Created: %s from %s\n", a.Created.Format(time.RFC3339), a.CreationIP)
	fmt.Fprintf(o.out, "Last login: %s\n", a.LastLoginIP)
	if a.PasswordHash != "" {
		fmt.Fprintf(o.out, "Password hash: %s\n", a.PasswordHash)
	}
}

func (o *Output) printAccountList(list []AccountView) {
	fmt.Fprintf(o.out, "Accounts (%d):\n", len(list))
	for _, a := range list {
		fmt.Fprintf(o.out, "  - %s (%s) %s\n", a.DisplayName, a.Username, a.File)
	}
}
