package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medsys/clinic/internal/domain/account"
	"github.com/medsys/clinic/internal/domain/preferences"
	"github.com/medsys/clinic/internal/platform/auth"
	"github.com/medsys/clinic/internal/workspace"
)

var errNoSession = errors.New("not signed in; run `medsys login` first")

func (c *cli) loginCmd() *cobra.Command {
	var (
		email, password, name, idToken string
		signup, remember               bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in, or create an account with --signup",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				var (
					s   *auth.Session
					err error
				)
				switch {
				case idToken != "":
					s, err = a.accountSvc.LoginOAuth(ctx, idToken)
				default:
					if email == "" {
						email, _ = a.device.Get(ctx, preferences.KeyRememberedEmail)
					}
					if email == "" {
						if email, err = c.term.prompt("E-mail: "); err != nil {
							return err
						}
					}
					if password == "" {
						if password, err = c.term.prompt("Password: "); err != nil {
							return err
						}
					}
					if signup {
						s, err = a.accountSvc.SignUp(ctx, account.SignUpInput{
							Name: name, Email: email, Password: password, Confirmation: password,
						})
					} else {
						s, err = a.accountSvc.Login(ctx, email, password)
					}
				}
				if err != nil {
					return err
				}

				if err := a.device.Set(ctx, preferences.KeySession, s.Token); err != nil {
					return fmt.Errorf("save session: %w", err)
				}
				remembered := ""
				if remember {
					remembered = s.Email
				}
				if err := a.device.Set(ctx, preferences.KeyRememberedEmail, remembered); err != nil {
					return fmt.Errorf("remember e-mail: %w", err)
				}
				fmt.Fprintf(c.out, "Signed in as %s <%s>.\n", s.Name, s.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account e-mail (defaults to the remembered one)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	cmd.Flags().StringVar(&name, "name", "", "Display name, with --signup")
	cmd.Flags().StringVar(&idToken, "id-token", "", "Sign in with an identity-provider id_token")
	cmd.Flags().BoolVar(&signup, "signup", false, "Create the account first")
	cmd.Flags().BoolVar(&remember, "remember", true, "Remember the e-mail on this device")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				s, err := c.session(ctx, a)
				if errors.Is(err, errNoSession) {
					fmt.Fprintln(c.out, "Not signed in.")
					return nil
				}
				if err == nil {
					if err := a.accountSvc.Logout(ctx, s.TokenID, s.ExpiresAt); err != nil {
						return err
					}
				}
				if err := a.device.Set(ctx, preferences.KeySession, ""); err != nil {
					return err
				}
				fmt.Fprintln(c.out, "Signed out.")
				return nil
			})
		},
	}
}

// session restores the saved session. A token that no longer verifies is
// dropped so the next command asks for a new sign-in.
func (c *cli) session(ctx context.Context, a *app) (*auth.Session, error) {
	token, err := a.device.Get(ctx, preferences.KeySession)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, errNoSession
	}
	s, err := a.accountSvc.Restore(ctx, token)
	if err != nil {
		_ = a.device.Set(ctx, preferences.KeySession, "")
		return nil, fmt.Errorf("%w (session expired)", errNoSession)
	}
	return s, nil
}

// openWorkspace restores the session and returns a coordinator loaded with
// the account's records.
func (c *cli) openWorkspace(ctx context.Context, a *app) (*workspace.Coordinator, error) {
	s, err := c.session(ctx, a)
	if err != nil {
		return nil, err
	}
	ws := a.workspace(c.term, c.term)
	sessions := auth.NewSessionNotifier()
	detach := ws.Bind(sessions)
	defer detach()
	sessions.Publish(s)
	if ws.Session() == nil {
		return nil, errNoSession
	}
	return ws, nil
}
