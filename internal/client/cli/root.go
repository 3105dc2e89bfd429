package cli

import (
	"context"
	"fmt"
)

func (a *App) getStatus() string {
	s := ""
	if u, ok := a.session.CachedUser(); ok {
		s = u.Username
	} else if a.session.IsAuthenticated() {
		s = "signed in"
	}
	if a.isEditing() {
		s += " editing"
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root prints the welcome line, starts the session watcher and runs the REPL
// on the app's reader.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to blogkeeper (type 'help' for commands)")

	if a.config != nil && a.config.SessionCheckInterval > 0 {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go a.StartSessionWatcher(wctx, a.config.SessionCheckInterval)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}
