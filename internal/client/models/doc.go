// Package models holds the client-side data types: the user record and its
// author profile, the profile edit draft, sign-up/login inputs, and blog
// posts. JSON tags follow the remote API's snake_case wire format.
package models
