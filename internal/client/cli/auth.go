package cli

import (
	"context"

	"github.com/dmitrijs2005/ocrdesk/internal/client/messages"
	"github.com/dmitrijs2005/ocrdesk/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) askText(prompt string) (string, error) {
	return getSimpleText(a.in, prompt, a.out)
}

func (a *App) askPassword(prompt string) (string, error) {
	pw, err := getPassword(a.in, prompt, a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

// SignUp creates an account and signs in with it.
func (a *App) SignUp(ctx context.Context) error {
	username, err := a.askText("Enter username")
	if err != nil {
		return err
	}
	email, err := a.askText("Enter email")
	if err != nil {
		return err
	}
	password, err := a.askPassword("Enter password")
	if err != nil {
		return err
	}

	resp, err := a.session.SignUp(ctx, username, email, password)
	if err != nil {
		return err
	}
	a.println(a.msgs.Text(messages.WelcomeUser, resp.User.Username))
	return nil
}

func (a *App) Login(ctx context.Context) error {
	username, err := a.askText("Enter username")
	if err != nil {
		return err
	}
	password, err := a.askPassword("Enter password")
	if err != nil {
		return err
	}

	resp, err := a.session.Login(ctx, username, password)
	if err != nil {
		return err
	}
	a.println(a.msgs.Text(messages.LoggedInAs, resp.User.Username))
	return nil
}

// Logout ends the session locally; the service is not told.
func (a *App) Logout(ctx context.Context) error {
	err := a.session.Logout(ctx)
	a.history.Clear()
	if err != nil {
		return err
	}
	a.println(a.msgs.Text(messages.LoggedOut))
	return nil
}

// Profile reloads and prints the signed-in user.
func (a *App) Profile(ctx context.Context) error {
	u, err := a.session.Refresh(ctx)
	if err != nil {
		return err
	}
	a.printf("%s <%s> (id %s)\n", u.Username, u.Email, u.ID)
	if exp, ok := a.session.ExpiresAt(); ok {
		a.println(a.msgs.Text(messages.SessionValidUntil, exp.Local().Format("2006-01-02 15:04")))
	}
	return nil
}

func (a *App) ChangePassword(ctx context.Context) error {
	oldPassword, err := a.askPassword("Enter current password")
	if err != nil {
		return err
	}
	newPassword, err := a.askPassword("Enter new password")
	if err != nil {
		return err
	}
	confirm, err := a.askPassword("Repeat new password")
	if err != nil {
		return err
	}

	msg, err := a.session.ChangePassword(ctx, oldPassword, newPassword, confirm)
	if err != nil {
		return err
	}
	a.println(msg)
	return nil
}

func (a *App) ChangeEmail(ctx context.Context) error {
	email, err := a.askText("Enter new email")
	if err != nil {
		return err
	}

	msg, err := a.session.ChangeEmail(ctx, email)
	if err != nil {
		return err
	}
	a.println(msg)
	return nil
}

// ForgotPassword requests a reset code and, once the user has it, sets the
// new password. An empty code stops after the first step.
func (a *App) ForgotPassword(ctx context.Context) error {
	username, err := a.askText("Enter username")
	if err != nil {
		return err
	}

	masked, err := a.session.ForgotPassword(ctx, username)
	if err != nil {
		return err
	}
	a.println(a.msgs.Text(messages.ResetCodeSent, masked))

	code, err := a.askText("Enter the 6-digit code (empty to finish later)")
	if err != nil {
		return err
	}
	if code == "" {
		return nil
	}
	newPassword, err := a.askPassword("Enter new password")
	if err != nil {
		return err
	}
	confirm, err := a.askPassword("Repeat new password")
	if err != nil {
		return err
	}

	msg, err := a.session.ResetPassword(ctx, username, code, newPassword, confirm)
	if err != nil {
		return err
	}
	a.println(msg)
	return nil
}
