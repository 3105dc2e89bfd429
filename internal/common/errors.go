// Package common defines shared constants and sentinel errors used across
// blogkeeper layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Local storage errors.
	ErrorNotFound = errors.New("not found")

	// Input errors detected before any request is made.
	ErrorInvalidInput = errors.New("invalid input")
)
