// Package cli provides the interactive blogkeeper command-line client.
//
// It wires configuration, the local session database, the API client and
// services, and runs a REPL whose commands stand in for the pages of the
// blog: the home feed, post detail, the user's own posts, post creation,
// registration, login, and profile view and editing.
//
// Profile editing works on a draft: 'edit' seeds it from the current record,
// 'set' and 'picture' change it, 'save' submits it and 'cancel' drops it.
// The cached record only changes when the server confirms a save.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartSessionWatcher and runREPL for details.
package cli
