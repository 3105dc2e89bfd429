// Package common contains shared constants and sentinel errors used across
// blogkeeper components.
package common

// AuthorizationHeaderName carries the session credential on outbound requests.
const AuthorizationHeaderName = "Authorization"

// TokenScheme is the credential scheme expected by the remote API:
//
//	Authorization: Token <value>
const TokenScheme = "Token"

// RequestIDHeaderName is attached to every outbound request so client logs
// can be matched against server logs.
const RequestIDHeaderName = "X-Request-ID"
