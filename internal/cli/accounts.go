package cli

import (
	"errors"
	"fmt"
	"net/netip"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/acctstore/internal/codec"
	"github.com/mcoot/acctstore/internal/model"
	"github.com/mcoot/acctstore/internal/services/auth"
)

// Exit codes
const (
	exitError       = 1
	exitNotFound    = 3
	exitConflict    = 4
	exitBadPassword = 5
)

func exitCode(err error) int {
	switch {
	case errors.Is(err, model.ErrAccountNotFound):
		return exitNotFound
	case errors.Is(err, model.ErrDuplicateUsername),
		errors.Is(err, model.ErrDisplayNameTaken),
		errors.Is(err, model.ErrCollisionExhausted):
		return exitConflict
	case errors.Is(err, auth.ErrInvalidCredentials):
		return exitBadPassword
	default:
		return exitError
	}
}

func output(cmd *cobra.Command) *Output {
	return NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func parseIP(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("--ip: %w", err)
	}
	return addr, nil
}

func newRegisterCmd() *cobra.Command {
	var user, pass, ip string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseIP(ip)
			if err != nil {
				return err
			}

			acct, err := app.AuthService.Register(cmd.Context(), user, pass, addr)
			if err != nil {
				return err
			}

			output(cmd).Print(newAccountView(acct))
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	cmd.Flags().StringVar(&ip, "ip", "127.0.0.1", "Address the account is created from")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newLoginCmd() *cobra.Command {
	var user, pass, ip string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check a password and record the login address",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseIP(ip)
			if err != nil {
				return err
			}

			acct, err := app.AuthService.Login(cmd.Context(), user, pass, addr)
			if err != nil {
				return err
			}

			output(cmd).Print(newAccountView(acct))
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	cmd.Flags().StringVar(&ip, "ip", "127.0.0.1", "Address the login comes from")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newPasswdCmd() *cobra.Command {
	var user, oldPass, newPass string

	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change an account's password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.AuthService.ChangePassword(cmd.Context(), user, oldPass, newPass); err != nil {
				return err
			}

			output(cmd).PrintMessage("Password changed")
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&oldPass, "old", "", "Current password (required)")
	cmd.Flags().StringVar(&newPass, "new", "", "New password (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("old")
	_ = cmd.MarkFlagRequired("new")

	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <username>",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := app.Store.FindByUsername(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			output(cmd).Print(newAccountView(acct))
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every account in the directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			accts, err := app.Store.List(cmd.Context())
			if err != nil {
				return err
			}

			views := make([]AccountView, 0, len(accts))
			for _, acct := range accts {
				views = append(views, newAccountView(acct))
			}
			output(cmd).Print(views)
			return nil
		},
	}
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <username> <display-name>",
		Short: "Change an account's display name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := app.Store.FindByUsername(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := app.Store.Rename(cmd.Context(), acct, args[1]); err != nil {
				return err
			}

			output(cmd).Print(newAccountView(acct))
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete an account file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := app.Store.FindByUsername(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := app.Store.Delete(cmd.Context(), acct); err != nil {
				return err
			}

			output(cmd).PrintMessage(fmt.Sprintf("Deleted %s", acct.FileName()))
			return nil
		},
	}
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Decode a raw account file without opening a store",
		Long: `inspect decodes one account file using --format and prints every field,
including the password hash. The file does not need to be inside --dir.`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{noStoreAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := model.ParseFormatVersion(cfg.Format)
			if err != nil {
				return fmt.Errorf("--format %q: %w", cfg.Format, err)
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			rec, err := codec.Decode(data, format)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			view := newRecordView(rec)
			view.File = args[0]
			output(cmd).Print(view)
			return nil
		},
	}
}
