// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner
// for default process execution, and defines the abstractions backport uses
// to run git in a testable manner. Captured command output can additionally
// be appended to a file through the FileCommandLog observer.
package execshell
