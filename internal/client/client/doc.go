// Package client contains the client-side transport to the blog API.
//
// # Overview
//
// The package provides:
//  1. A stateless API contract (see the Client interface). Every call takes
//     the session token explicitly; the caller owns session state.
//  2. An HTTP/JSON implementation (see HTTPClient) that sends the
//     "Authorization: Token <t>" header, tags requests with X-Request-ID and
//     switches to multipart bodies when an image is attached.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Every failed call returns *APIError. Its Message reduces the server body
// to one line: non_field_errors first, then error, then the first message of
// the first field in body order, then a generic fallback. Callers match
// conditions with errors.Is: ErrUnavailable, ErrUnauthorized, ErrValidation,
// ErrNotFound, ErrServer, ErrMalformedResponse.
package client
