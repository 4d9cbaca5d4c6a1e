// Package gitrepo contains helpers for describing Git repository locations.
//
// It exposes RemoteURL for building the remote addresses the backport
// pipeline registers and pushes to, in either SSH or HTTPS form.
package gitrepo
