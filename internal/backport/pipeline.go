package backport

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xen-org/backport/internal/execshell"
	"github.com/xen-org/backport/internal/gitrepo"
)

const (
	gitCloneSubcommandConstant      = "clone"
	gitCloneBranchFlagConstant      = "--branch"
	gitConfigSubcommandConstant     = "config"
	gitUserNameConfigKeyConstant    = "user.name"
	gitUserEmailConfigKeyConstant   = "user.email"
	gitRemoteSubcommandConstant     = "remote"
	gitRemoteAddSubcommandConstant  = "add"
	gitFetchSubcommandConstant      = "fetch"
	gitCheckoutSubcommandConstant   = "checkout"
	gitCheckoutNewBranchFlag        = "-b"
	gitCherryPickSubcommandConstant = "cherry-pick"
	gitPushSubcommandConstant       = "push"

	cloneStepDescriptionTemplateConstant      = "clone %s at %s"
	callerRemoteStepDescriptionTemplate       = "add remote for caller %s"
	committerNameStepDescriptionConstant      = "configure committer name"
	committerEmailStepDescriptionConstant     = "configure committer email"
	authorRemoteStepDescriptionTemplate       = "add remote for author %s"
	fetchStepDescriptionTemplateConstant      = "fetch remote %s"
	branchStepDescriptionTemplateConstant     = "create branch %s"
	cherryPickStepDescriptionTemplateConstant = "cherry-pick %s"
	pushStepDescriptionTemplateConstant       = "push %s to %s"

	planStepFailureTemplateConstant = "%s: %w"
	requiredFieldMessageConstant    = "value required"

	hostFieldNameConstant              = "host"
	upstreamOwnerFieldNameConstant     = "upstream_owner"
	repositoryFieldNameConstant        = "repository"
	destinationBranchFieldNameConstant = "destination_branch"
	newBranchNameFieldNameConstant     = "branch_name"
	authorLoginFieldNameConstant       = "author_login"
	callerLoginFieldNameConstant       = "caller_login"
	committerNameFieldNameConstant     = "committer_name"
	committerEmailFieldNameConstant    = "committer_email"
	scratchDirectoryFieldNameConstant  = "scratch_directory"
)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s", inputError.FieldName, inputError.Message)
}

// PlanOptions carries everything needed to derive the git command plan.
type PlanOptions struct {
	Host              string
	UpstreamOwner     string
	Repository        string
	DestinationBranch string
	NewBranchName     string
	AuthorLogin       string
	CallerLogin       string
	CommitSHAs        []string
	CommitterName     string
	CommitterEmail    string
	ScratchDirectory  string
}

// Step pairs a human-readable description with one git invocation.
type Step struct {
	Description string
	Details     execshell.CommandDetails
}

// Plan is the ordered command sequence of a backport run. It is fully built
// before the first command executes and never mutated afterwards.
type Plan []Step

// RepositoryPath reports where the plan clones the repository.
func RepositoryPath(scratchDirectory string, repository string) string {
	return filepath.Join(scratchDirectory, repository)
}

// BuildPlan derives the fixed backport command sequence. Cherry-pick steps
// appear in CommitSHAs order, one step per SHA; reordering them can produce
// conflicts or a semantically different branch. When the pull request author
// is also the caller no separate caller remote is registered and the
// author's remote is both fetched from and pushed to.
func BuildPlan(options PlanOptions) (Plan, error) {
	if validationError := options.validate(); validationError != nil {
		return nil, validationError
	}

	repositoryPath := RepositoryPath(options.ScratchDirectory, options.Repository)

	upstreamRemoteURL, upstreamURLError := gitrepo.SSHRemoteURL(options.Host, options.UpstreamOwner, options.Repository)
	if upstreamURLError != nil {
		return nil, upstreamURLError
	}
	authorRemoteURL, authorURLError := gitrepo.SSHRemoteURL(options.Host, options.AuthorLogin, options.Repository)
	if authorURLError != nil {
		return nil, authorURLError
	}

	plan := Plan{
		{
			Description: fmt.Sprintf(cloneStepDescriptionTemplateConstant, upstreamRemoteURL, options.DestinationBranch),
			Details: execshell.CommandDetails{
				Arguments:        []string{gitCloneSubcommandConstant, gitCloneBranchFlagConstant, options.DestinationBranch, upstreamRemoteURL, options.Repository},
				WorkingDirectory: options.ScratchDirectory,
			},
		},
	}

	if options.AuthorLogin != options.CallerLogin {
		callerRemoteURL, callerURLError := gitrepo.SSHRemoteURL(options.Host, options.CallerLogin, options.Repository)
		if callerURLError != nil {
			return nil, callerURLError
		}
		plan = append(plan, Step{
			Description: fmt.Sprintf(callerRemoteStepDescriptionTemplate, options.CallerLogin),
			Details: execshell.CommandDetails{
				Arguments:        []string{gitRemoteSubcommandConstant, gitRemoteAddSubcommandConstant, options.CallerLogin, callerRemoteURL},
				WorkingDirectory: repositoryPath,
			},
		})
	}

	plan = append(plan,
		Step{
			Description: committerNameStepDescriptionConstant,
			Details: execshell.CommandDetails{
				Arguments:        []string{gitConfigSubcommandConstant, gitUserNameConfigKeyConstant, options.CommitterName},
				WorkingDirectory: repositoryPath,
			},
		},
		Step{
			Description: committerEmailStepDescriptionConstant,
			Details: execshell.CommandDetails{
				Arguments:        []string{gitConfigSubcommandConstant, gitUserEmailConfigKeyConstant, options.CommitterEmail},
				WorkingDirectory: repositoryPath,
			},
		},
		Step{
			Description: fmt.Sprintf(authorRemoteStepDescriptionTemplate, options.AuthorLogin),
			Details: execshell.CommandDetails{
				Arguments:        []string{gitRemoteSubcommandConstant, gitRemoteAddSubcommandConstant, options.AuthorLogin, authorRemoteURL},
				WorkingDirectory: repositoryPath,
			},
		},
		Step{
			Description: fmt.Sprintf(fetchStepDescriptionTemplateConstant, options.AuthorLogin),
			Details: execshell.CommandDetails{
				Arguments:        []string{gitFetchSubcommandConstant, options.AuthorLogin},
				WorkingDirectory: repositoryPath,
			},
		},
		Step{
			Description: fmt.Sprintf(branchStepDescriptionTemplateConstant, options.NewBranchName),
			Details: execshell.CommandDetails{
				Arguments:        []string{gitCheckoutSubcommandConstant, gitCheckoutNewBranchFlag, options.NewBranchName},
				WorkingDirectory: repositoryPath,
			},
		},
	)

	for _, commitSHA := range options.CommitSHAs {
		plan = append(plan, Step{
			Description: fmt.Sprintf(cherryPickStepDescriptionTemplateConstant, commitSHA),
			Details: execshell.CommandDetails{
				Arguments:        []string{gitCherryPickSubcommandConstant, commitSHA},
				WorkingDirectory: repositoryPath,
			},
		})
	}

	plan = append(plan, Step{
		Description: fmt.Sprintf(pushStepDescriptionTemplateConstant, options.NewBranchName, options.CallerLogin),
		Details: execshell.CommandDetails{
			Arguments:        []string{gitPushSubcommandConstant, options.CallerLogin, options.NewBranchName},
			WorkingDirectory: repositoryPath,
		},
	})

	return plan, nil
}

// GitExecutor is the minimal interface required from execshell.ShellExecutor.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ExecutePlan runs the plan's steps in order and stops at the first failing
// step. The returned error names the step so a partially completed working
// tree can be diagnosed; callers decide whether to continue the run.
func ExecutePlan(executionContext context.Context, executor GitExecutor, plan Plan) error {
	for _, planStep := range plan {
		if _, executionError := executor.ExecuteGit(executionContext, planStep.Details); executionError != nil {
			return fmt.Errorf(planStepFailureTemplateConstant, planStep.Description, executionError)
		}
	}
	return nil
}

func (options PlanOptions) validate() error {
	requiredFields := []struct {
		fieldName  string
		fieldValue string
	}{
		{fieldName: hostFieldNameConstant, fieldValue: options.Host},
		{fieldName: upstreamOwnerFieldNameConstant, fieldValue: options.UpstreamOwner},
		{fieldName: repositoryFieldNameConstant, fieldValue: options.Repository},
		{fieldName: destinationBranchFieldNameConstant, fieldValue: options.DestinationBranch},
		{fieldName: newBranchNameFieldNameConstant, fieldValue: options.NewBranchName},
		{fieldName: authorLoginFieldNameConstant, fieldValue: options.AuthorLogin},
		{fieldName: callerLoginFieldNameConstant, fieldValue: options.CallerLogin},
		{fieldName: committerNameFieldNameConstant, fieldValue: options.CommitterName},
		{fieldName: committerEmailFieldNameConstant, fieldValue: options.CommitterEmail},
		{fieldName: scratchDirectoryFieldNameConstant, fieldValue: options.ScratchDirectory},
	}

	for _, requiredField := range requiredFields {
		if len(strings.TrimSpace(requiredField.fieldValue)) == 0 {
			return InvalidInputError{FieldName: requiredField.fieldName, Message: requiredFieldMessageConstant}
		}
	}

	return nil
}
