package cli

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"taskdesk/internal/format"
	"taskdesk/internal/model"
	"taskdesk/internal/session"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func newLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session in the state dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" || password == "" {
				if !app.interactive() {
					return writeErr(cmd, errUsage("missing --email/--password (no terminal to prompt on)"))
				}
				if err := promptLogin(&email, &password); err != nil {
					return writeErr(cmd, err)
				}
			}

			snap, err := app.sess.Login(cmd.Context(), app.client, email, password)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{Data: whoami{User: snap.User, APIURL: app.client.BaseURL(), expires: expiryOf(snap.Token)}})
		},
	}

	cmd.Flags().StringVar(&email, "email", envOr("TASKDESK_EMAIL", ""), "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	return cmd
}

func promptLogin(email, password *string) error {
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Email").
			Value(email).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("email is required")
				}
				return nil
			}),
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(password),
	)).Run()
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.sess.Logout(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{Data: map[string]any{"loggedOut": true}})
		},
	}
}

func newSignupCmd(app *App) *cobra.Command {
	var in model.SignupInput
	var confirm string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(in.Email) == "" || in.Password == "" {
				if !app.interactive() {
					return writeErr(cmd, errUsage("missing --email/--password (no terminal to prompt on)"))
				}
				if err := promptSignup(&in, &confirm); err != nil {
					return writeErr(cmd, err)
				}
			}
			if !cmd.Flags().Changed("confirm-password") && confirm == "" {
				confirm = in.Password
			}

			err := session.Signup(cmd.Context(), app.client, in, confirm)
			var se *session.SignupError
			switch {
			case errors.As(err, &se):
				return writeErr(cmd, validationError{msg: se.Error(), err: err})
			case err != nil:
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{
				Data:  map[string]any{"email": strings.TrimSpace(in.Email)},
				Hints: []string{"taskdesk login --email " + strings.TrimSpace(in.Email)},
			})
		},
	}

	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password")
	cmd.Flags().StringVar(&confirm, "confirm-password", "", "Password again (defaults to --password)")
	return cmd
}

func promptSignup(in *model.SignupInput, confirm *string) error {
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("First name").Value(&in.FirstName),
		huh.NewInput().Title("Last name").Value(&in.LastName),
		huh.NewInput().Title("Email").Value(&in.Email),
		huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&in.Password),
		huh.NewInput().Title("Confirm password").EchoMode(huh.EchoModePassword).Value(confirm),
	)).Run()
}

type whoami struct {
	User    model.User
	APIURL  string
	expires *time.Time
}

func (w whoami) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"user":           w.User,
		"apiUrl":         w.APIURL,
		"tokenExpiresAt": w.expires,
	})
}

func (w whoami) Table() format.Table {
	exp := "unknown"
	if w.expires != nil {
		exp = w.expires.Local().Format(time.RFC1123)
	}
	return format.Table{
		Headers: []string{"Field", "Value"},
		Rows: [][]string{
			{"Name", w.User.DisplayName()},
			{"Email", w.User.Email},
			{"API", w.APIURL},
			{"Token expires", exp},
		},
		Struck: make([]bool, 4),
	}
}

func expiryOf(token string) *time.Time {
	if t, ok := session.TokenExpiry(token); ok {
		return &t
	}
	return nil
}

func newWhoamiCmd(app *App) *cobra.Command {
	return requireAuth(&cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := app.sess.Snapshot()
			return writeOut(cmd, app, format.Envelope{Data: whoami{User: snap.User, APIURL: app.client.BaseURL(), expires: expiryOf(snap.Token)}})
		},
	})
}
