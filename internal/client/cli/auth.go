package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dmitrijs2005/chantube/internal/client/client"
	"github.com/dmitrijs2005/chantube/internal/client/models"
	"github.com/dmitrijs2005/chantube/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) prompt(text string) (string, error) {
	return getSimpleText(a.reader, text, a.out)
}

// report prints a failure. Server messages are shown as-is; transport
// failures also switch the app to offline mode.
func (a *App) report(op string, err error) error {
	var se *client.ServerError
	switch {
	case errors.As(err, &se):
		fmt.Fprintf(a.out, "%s failed: %s\n", op, se.Message)
	case errors.Is(err, client.ErrUnavailable):
		a.setMode(ModeOffline)
		fmt.Fprintf(a.out, "%s failed: server unavailable\n", op)
	default:
		log.Printf("%s error: %v", op, err)
	}
	return err
}

// Register prompts for the registration form and creates an account. It
// does not log in.
func (a *App) Register(ctx context.Context) error {
	req := &models.RegisterRequest{}

	fields := []struct {
		prompt string
		dst    *string
	}{
		{"Enter full name", &req.FullName},
		{"Enter email", &req.Email},
		{"Enter username", &req.Username},
		{"Path to avatar image", &req.AvatarPath},
		{"Path to cover image (optional)", &req.CoverImagePath},
	}
	for _, f := range fields {
		v, err := a.prompt(f.prompt)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	req.Password = password

	acc, err := a.authService.Register(ctx, req)
	if err != nil {
		return a.report("register", err)
	}

	fmt.Fprintf(a.out, "Registered %s (%s)\n", acc.Username, acc.ID)
	return nil
}

// Login prompts for a username or email and a password.
func (a *App) Login(ctx context.Context) error {
	identifier, err := a.prompt("Enter username or email")
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	acc, err := a.authService.Login(ctx, identifier, password)
	if err != nil {
		return a.report("login", err)
	}

	a.setMode(ModeOnline)
	a.userName = acc.Username
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	acc, err := a.authService.WhoAmI(ctx)
	if err != nil {
		if !a.isLoggedIn() {
			a.userName = ""
		}
		return a.report("whoami", err)
	}

	fmt.Fprintf(a.out, "%s <%s> %s\n", acc.Username, acc.Email, acc.FullName)
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.authService.Refresh(ctx); err != nil {
		if !a.isLoggedIn() {
			a.userName = ""
		}
		return a.report("refresh", err)
	}
	fmt.Fprintln(a.out, "Tokens refreshed")
	return nil
}

// Logout revokes the session on the server and forgets it locally.
func (a *App) Logout(ctx context.Context) error {
	err := a.authService.Logout(ctx)
	a.userName = ""
	if err != nil {
		return a.report("logout", err)
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
