// Package cli assembles the backport command-line application, wiring
// configuration loading, structured logging, and the run subcommand.
package cli
