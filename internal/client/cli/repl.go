package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	isEditing() bool

	Home(ctx context.Context) error
	Show(ctx context.Context, slug string) error
	MyPosts(ctx context.Context) error
	Create(ctx context.Context) error

	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Check(ctx context.Context) error

	Profile(ctx context.Context) error
	Edit(ctx context.Context) error
	EditSet(field, value string) error
	EditPicture(path string) error
	EditSave(ctx context.Context) error
	EditCancel()
}

const (
	helpAnonymous = "Available commands: home, show <slug>, register, login, check, exit"
	helpLoggedIn  = "Available commands: home, show <slug>, myposts, create, whoami, profile, edit, check, logout, exit"
	helpEditing   = "Editing profile: set <field> <value>, picture <path>, save, cancel (fields: first_name, last_name, bio, website, twitter_handle)"
)

// runREPL starts a simple read–eval–print loop for the blogkeeper CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF or when the user types "exit" or "quit".
//
//	Always:
//	  - help              show available commands
//	  - home | feed       latest published posts
//	  - show <slug>       one post
//	  - check             ask the server whether the session is valid
//	  - exit | quit       leave the program
//
//	Not logged in:
//	  - register, login
//
//	Logged in:
//	  - myposts, create, whoami, profile, edit, logout
//
//	While editing the profile:
//	  - set <field> <value>, picture <path>, save, cancel
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("blog> %s > ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			switch {
			case a.isEditing():
				printlnFn(helpEditing)
			case a.isLoggedIn():
				printlnFn(helpLoggedIn)
			default:
				printlnFn(helpAnonymous)
			}

		case "home", "feed":
			_ = a.Home(ctx)

		case "show":
			if len(args) == 0 {
				printlnFn("Usage: show <slug>")
				continue
			}
			_ = a.Show(ctx, args[0])

		case "myposts":
			_ = a.MyPosts(ctx)

		case "create":
			_ = a.Create(ctx)

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "profile":
			_ = a.Profile(ctx)

		case "edit":
			_ = a.Edit(ctx)

		case "check":
			_ = a.Check(ctx)

		case "set":
			if len(args) < 2 {
				printlnFn("Usage: set <field> <value>")
				continue
			}
			_ = a.EditSet(args[0], restOfLine(line, 2))

		case "picture":
			if len(args) == 0 {
				printlnFn("Usage: picture <path>")
				continue
			}
			_ = a.EditPicture(restOfLine(line, 1))

		case "save":
			_ = a.EditSave(ctx)

		case "cancel":
			a.EditCancel()

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}

// restOfLine drops the first n words of line and returns the remainder with
// its inner spacing intact.
func restOfLine(line string, n int) string {
	s := strings.TrimSpace(line)
	for i := 0; i < n; i++ {
		idx := strings.IndexFunc(s, func(r rune) bool { return r == ' ' || r == '\t' })
		if idx < 0 {
			return ""
		}
		s = strings.TrimSpace(s[idx:])
	}
	return s
}
