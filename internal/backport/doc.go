// Package backport implements the pull request backport workflow.
//
// It builds the fixed git command plan that clones the upstream repository,
// cherry-picks the pull request's commits onto a new branch, and pushes the
// branch to the invoking user's fork; the Service orchestrates that plan
// between the code host calls that fetch the source pull request and open
// the new one. The Cobra command front-end lives here as well.
package backport
