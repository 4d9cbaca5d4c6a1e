package backport

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xen-org/backport/internal/githubapi"
)

const (
	serviceLoggerRequiredMessageConstant   = "service logger required"
	serviceClientRequiredMessageConstant   = "service code host client required"
	serviceExecutorRequiredMessageConstant = "service git executor required"

	usernameFieldNameConstant          = "username"
	passwordFieldNameConstant          = "password"
	pullRequestNumberFieldNameConstant = "pull_request_number"
	positiveNumberMessageConstant      = "positive number required"

	tokenCreationErrorTemplateConstant    = "token creation failed: %w"
	pullRequestFetchErrorTemplateConstant = "pull request lookup failed: %w"
	commitListFetchErrorTemplateConstant  = "pull request commit listing failed: %w"
	pipelineFailureTemplateConstant       = "backport pipeline failed: %w"
	pullRequestCreationErrorTemplate      = "pull request creation failed: %w"
	authenticatedLogMessageConstant       = "authenticated against code host"
	pullRequestFetchedLogMessageConstant  = "fetched pull request metadata"
	commitListFetchedLogMessageConstant   = "fetched pull request commits"
	pipelineCompletedLogMessageConstant   = "pushed backport branch"
	pullRequestCreatedLogMessageConstant  = "created pull request"
	logFieldUsernameConstant              = "username"
	logFieldPullRequestNumberConstant     = "pull_request_number"
	logFieldPullRequestTitleConstant      = "title"
	logFieldPullRequestAuthorConstant     = "author"
	logFieldCommitCountConstant           = "commit_count"
	logFieldBranchNameConstant            = "branch"
	logFieldResponseBodyConstant          = "response_body"
)

// Sentinel errors reported by NewService.
var (
	ErrServiceLoggerRequired   = errors.New(serviceLoggerRequiredMessageConstant)
	ErrServiceClientRequired   = errors.New(serviceClientRequiredMessageConstant)
	ErrServiceExecutorRequired = errors.New(serviceExecutorRequiredMessageConstant)
)

// CodeHostClient is the subset of githubapi.Client the service depends on.
type CodeHostClient interface {
	CreateToken(executionContext context.Context, username string, password string) (string, error)
	GetPullRequest(executionContext context.Context, token string, owner string, repository string, issueNumber int) (githubapi.PullRequestInfo, error)
	GetPullRequestCommits(executionContext context.Context, token string, owner string, repository string, issueNumber int) ([]string, error)
	CreatePullRequest(executionContext context.Context, token string, submission githubapi.PullRequestSubmission) (string, error)
}

// BackportOptions describes one backport run.
type BackportOptions struct {
	Username          string
	Password          string
	PullRequestNumber int
	Repository        string
	DestinationBranch string
	NewBranchName     string
	CommitterName     string
	CommitterEmail    string
	UpstreamOwner     string
	GitHost           string
	ScratchDirectory  string
}

// Service orchestrates one backport run end to end.
type Service struct {
	logger   *zap.Logger
	client   CodeHostClient
	executor GitExecutor
}

// NewService constructs a backport service.
func NewService(logger *zap.Logger, client CodeHostClient, executor GitExecutor) (*Service, error) {
	if logger == nil {
		return nil, ErrServiceLoggerRequired
	}
	if client == nil {
		return nil, ErrServiceClientRequired
	}
	if executor == nil {
		return nil, ErrServiceExecutorRequired
	}
	return &Service{logger: logger, client: client, executor: executor}, nil
}

// Backport performs the full run: authenticate, fetch the source pull
// request and its commits, execute the git plan, then open the new pull
// request. Every step is sequential; the first failure aborts the run, so a
// failed git pipeline never leads to a pull request being opened. The
// obtained token stays in memory and is never logged. There is no
// compensation when pull request creation fails after a successful push; the
// branch remains on the caller's fork.
func (service *Service) Backport(executionContext context.Context, options BackportOptions) error {
	if validationError := options.validate(); validationError != nil {
		return validationError
	}

	token, tokenError := service.client.CreateToken(executionContext, options.Username, options.Password)
	if tokenError != nil {
		return fmt.Errorf(tokenCreationErrorTemplateConstant, tokenError)
	}
	service.logger.Info(authenticatedLogMessageConstant, zap.String(logFieldUsernameConstant, options.Username))

	pullRequestInfo, fetchError := service.client.GetPullRequest(executionContext, token, options.UpstreamOwner, options.Repository, options.PullRequestNumber)
	if fetchError != nil {
		return fmt.Errorf(pullRequestFetchErrorTemplateConstant, fetchError)
	}
	service.logger.Info(
		pullRequestFetchedLogMessageConstant,
		zap.Int(logFieldPullRequestNumberConstant, options.PullRequestNumber),
		zap.String(logFieldPullRequestTitleConstant, pullRequestInfo.Title),
		zap.String(logFieldPullRequestAuthorConstant, pullRequestInfo.AuthorLogin),
	)

	commitSHAs, commitListError := service.client.GetPullRequestCommits(executionContext, token, options.UpstreamOwner, options.Repository, options.PullRequestNumber)
	if commitListError != nil {
		return fmt.Errorf(commitListFetchErrorTemplateConstant, commitListError)
	}
	service.logger.Info(commitListFetchedLogMessageConstant, zap.Int(logFieldCommitCountConstant, len(commitSHAs)))

	plan, planError := BuildPlan(PlanOptions{
		Host:              options.GitHost,
		UpstreamOwner:     options.UpstreamOwner,
		Repository:        options.Repository,
		DestinationBranch: options.DestinationBranch,
		NewBranchName:     options.NewBranchName,
		AuthorLogin:       pullRequestInfo.AuthorLogin,
		CallerLogin:       options.Username,
		CommitSHAs:        commitSHAs,
		CommitterName:     options.CommitterName,
		CommitterEmail:    options.CommitterEmail,
		ScratchDirectory:  options.ScratchDirectory,
	})
	if planError != nil {
		return planError
	}

	if pipelineError := ExecutePlan(executionContext, service.executor, plan); pipelineError != nil {
		return fmt.Errorf(pipelineFailureTemplateConstant, pipelineError)
	}
	service.logger.Info(pipelineCompletedLogMessageConstant, zap.String(logFieldBranchNameConstant, options.NewBranchName))

	responseBody, creationError := service.client.CreatePullRequest(executionContext, token, githubapi.PullRequestSubmission{
		Title:      pullRequestInfo.Title,
		Body:       pullRequestInfo.Body,
		Owner:      options.UpstreamOwner,
		Repository: options.Repository,
		BaseBranch: options.DestinationBranch,
		HeadOwner:  options.Username,
		HeadBranch: options.NewBranchName,
	})
	if creationError != nil {
		return fmt.Errorf(pullRequestCreationErrorTemplate, creationError)
	}

	service.logger.Info(pullRequestCreatedLogMessageConstant, zap.String(logFieldResponseBodyConstant, responseBody))

	return nil
}

func (options BackportOptions) validate() error {
	if len(options.Username) == 0 {
		return InvalidInputError{FieldName: usernameFieldNameConstant, Message: requiredFieldMessageConstant}
	}
	if len(options.Password) == 0 {
		return InvalidInputError{FieldName: passwordFieldNameConstant, Message: requiredFieldMessageConstant}
	}
	if options.PullRequestNumber <= 0 {
		return InvalidInputError{FieldName: pullRequestNumberFieldNameConstant, Message: positiveNumberMessageConstant}
	}
	return nil
}
