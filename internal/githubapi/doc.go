// Package githubapi implements the thin REST client the backport tool uses
// against the code host.
//
// It covers exactly four operations: exchanging a username and password for
// an API token, reading pull request metadata, listing a pull request's
// commits, and opening a new pull request. Responses are decoded with
// goccy/go-json and unexpected status codes surface as typed errors; there
// are no retries.
package githubapi
