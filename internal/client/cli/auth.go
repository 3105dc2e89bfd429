package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/blogkeeper/internal/client/client"
	"github.com/dmitrijs2005/blogkeeper/internal/client/models"
	"github.com/dmitrijs2005/blogkeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for the sign-up form and creates the account. A picture
// path is optional; the file is read and sent along with the form.
//
// On success the new session is active and "Welcome, <name>!" is printed.
// The password byte slice is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	var in models.RegistrationInput
	var err error

	prompts := []struct {
		dst    *string
		prompt string
	}{
		{&in.Username, "Enter username"},
		{&in.Email, "Enter email"},
	}
	for _, p := range prompts {
		if *p.dst, err = getSimpleText(a.reader, p.prompt, os.Stdout); err != nil {
			return err
		}
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	in.Password = string(password)

	optional := []struct {
		dst    *string
		prompt string
	}{
		{&in.FirstName, "First name (optional)"},
		{&in.LastName, "Last name (optional)"},
		{&in.Bio, "Bio (optional)"},
	}
	for _, p := range optional {
		if *p.dst, err = getSimpleText(a.reader, p.prompt, os.Stdout); err != nil {
			return err
		}
	}

	path, err := getSimpleText(a.reader, "Profile picture path (optional)", os.Stdout)
	if err != nil {
		return err
	}
	if path != "" {
		if in.Picture, err = loadPicture(path); err != nil {
			printError(err)
			return err
		}
	}

	u, err := a.session.Register(ctx, in)
	if err != nil {
		printError(err)
		return err
	}

	printlnFn(fmt.Sprintf("Welcome, %s!", u.DisplayName()))
	return nil
}

// Login prompts for a username or email and a password. Failures print the
// one-line message the server's answer reduces to.
func (a *App) Login(ctx context.Context) error {
	identifier, err := getSimpleText(a.reader, "Enter username or email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.session.Login(ctx, models.Credentials{Identifier: identifier, Password: string(password)})
	if err != nil {
		printlnFn("Login failed:", errorMessage(err))
		return err
	}

	printlnFn(fmt.Sprintf("Logged in as %s", u.Username))
	return nil
}

// Logout ends the session locally even when the server cannot be reached.
func (a *App) Logout(ctx context.Context) error {
	a.draft = nil
	if err := a.session.Logout(ctx); err != nil {
		printError(err)
		return err
	}
	printlnFn("Logged out")
	return nil
}

// WhoAmI prints the cached identity without a network call.
func (a *App) WhoAmI(ctx context.Context) error {
	u, ok := a.session.CachedUser()
	if !ok {
		if a.session.IsAuthenticated() {
			return a.Profile(ctx)
		}
		printlnFn("Not logged in")
		return nil
	}
	printlnFn(fmt.Sprintf("%s <%s>", u.DisplayName(), u.Email))
	return nil
}

// Check asks the server whether the stored token is still valid.
func (a *App) Check(ctx context.Context) error {
	st := a.session.CheckAuth(ctx)
	switch {
	case st.Authenticated && st.Username != "":
		printlnFn("Authenticated as", st.Username)
	case st.Authenticated:
		printlnFn("Authenticated")
	case a.session.IsAuthenticated():
		printlnFn("Could not verify the session (server unreachable?)")
	default:
		printlnFn("Not authenticated")
	}
	return nil
}

// loginFirst is the redirect to the login page: operations that fail with
// services.ErrUnauthenticated call it and retry once on success.
func (a *App) loginFirst(ctx context.Context) error {
	printlnFn("You need to log in first.")
	return a.Login(ctx)
}

func loadPicture(path string) (*models.Picture, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("read picture: %w", err)
	}
	return models.NewPicture(path, data), nil
}

// errorMessage is what the user sees for err: the reduced server message
// for API errors, the error text otherwise.
func errorMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return err.Error()
}

// printError prints err; field errors are listed one field per line.
func printError(err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Kind() == client.KindFieldErrors {
		for _, f := range apiErr.Fields {
			printlnFn(fmt.Sprintf("  %s: %s", f.Field, strings.Join(f.Messages, " ")))
		}
		return
	}
	printlnFn("Error:", errorMessage(err))
}
