package backport_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xen-org/backport/internal/backport"
	"github.com/xen-org/backport/internal/githubapi"
)

const (
	testUsernameConstant              = "bob"
	testPasswordConstant              = "hunter2"
	testTokenConstant                 = "secret-token-value"
	testPullRequestNumberConstant     = 42
	testPullRequestTitleConstant      = "Fix the widget"
	testPullRequestBodyConstant       = "The widget was broken."
	testCreationResponseBodyConstant  = `{"number": 99}`
	testTokenFailureMessageConstant   = "bad credentials"
	testLookupFailureMessageConstant  = "not found"
	testPipelineFailureMessage        = "cherry-pick conflict"
	testServiceValidationCaseLogger   = "missing_logger"
	testServiceValidationCaseClient   = "missing_client"
	testServiceValidationCaseExecutor = "missing_executor"
)

type fakeCodeHostClient struct {
	pullRequestInfo    githubapi.PullRequestInfo
	commitSHAs         []string
	tokenError         error
	pullRequestError   error
	commitListError    error
	creationError      error
	recordedCalls      []string
	recordedSubmission githubapi.PullRequestSubmission
}

func (client *fakeCodeHostClient) CreateToken(executionContext context.Context, username string, password string) (string, error) {
	client.recordedCalls = append(client.recordedCalls, "CreateToken")
	if client.tokenError != nil {
		return "", client.tokenError
	}
	return testTokenConstant, nil
}

func (client *fakeCodeHostClient) GetPullRequest(executionContext context.Context, token string, owner string, repository string, issueNumber int) (githubapi.PullRequestInfo, error) {
	client.recordedCalls = append(client.recordedCalls, "GetPullRequest")
	if client.pullRequestError != nil {
		return githubapi.PullRequestInfo{}, client.pullRequestError
	}
	return client.pullRequestInfo, nil
}

func (client *fakeCodeHostClient) GetPullRequestCommits(executionContext context.Context, token string, owner string, repository string, issueNumber int) ([]string, error) {
	client.recordedCalls = append(client.recordedCalls, "GetPullRequestCommits")
	if client.commitListError != nil {
		return nil, client.commitListError
	}
	return client.commitSHAs, nil
}

func (client *fakeCodeHostClient) CreatePullRequest(executionContext context.Context, token string, submission githubapi.PullRequestSubmission) (string, error) {
	client.recordedCalls = append(client.recordedCalls, "CreatePullRequest")
	client.recordedSubmission = submission
	if client.creationError != nil {
		return "", client.creationError
	}
	return testCreationResponseBodyConstant, nil
}

func defaultBackportOptions() backport.BackportOptions {
	return backport.BackportOptions{
		Username:          testUsernameConstant,
		Password:          testPasswordConstant,
		PullRequestNumber: testPullRequestNumberConstant,
		Repository:        testRepositoryNameConstant,
		DestinationBranch: testDestinationBranchConstant,
		NewBranchName:     testNewBranchNameConstant,
		CommitterName:     testCommitterNameConstant,
		CommitterEmail:    testCommitterEmailConstant,
		UpstreamOwner:     testUpstreamOwnerConstant,
		GitHost:           testGitHostConstant,
		ScratchDirectory:  testScratchDirectoryConstant,
	}
}

func defaultFakeClient() *fakeCodeHostClient {
	return &fakeCodeHostClient{
		pullRequestInfo: githubapi.PullRequestInfo{
			Title:       testPullRequestTitleConstant,
			Body:        testPullRequestBodyConstant,
			AuthorLogin: testAuthorLoginConstant,
		},
		commitSHAs: []string{testFirstCommitSHAConstant, testSecondCommitSHAConstant},
	}
}

func TestNewServiceValidation(testInstance *testing.T) {
	testCases := []struct {
		name        string
		logger      *zap.Logger
		client      backport.CodeHostClient
		executor    backport.GitExecutor
		expectError error
	}{
		{
			name:        testServiceValidationCaseLogger,
			client:      defaultFakeClient(),
			executor:    newRecordingGitExecutor(),
			expectError: backport.ErrServiceLoggerRequired,
		},
		{
			name:        testServiceValidationCaseClient,
			logger:      zap.NewNop(),
			executor:    newRecordingGitExecutor(),
			expectError: backport.ErrServiceClientRequired,
		},
		{
			name:        testServiceValidationCaseExecutor,
			logger:      zap.NewNop(),
			client:      defaultFakeClient(),
			expectError: backport.ErrServiceExecutorRequired,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			service, creationError := backport.NewService(testCase.logger, testCase.client, testCase.executor)
			require.Nil(testInstance, service)
			require.ErrorIs(testInstance, creationError, testCase.expectError)
		})
	}
}

func TestBackportHappyPath(testInstance *testing.T) {
	fakeClient := defaultFakeClient()
	executor := newRecordingGitExecutor()

	service, creationError := backport.NewService(zap.NewNop(), fakeClient, executor)
	require.NoError(testInstance, creationError)

	require.NoError(testInstance, service.Backport(context.Background(), defaultBackportOptions()))

	require.Equal(testInstance, []string{"CreateToken", "GetPullRequest", "GetPullRequestCommits", "CreatePullRequest"}, fakeClient.recordedCalls)

	arguments := renderedArguments(executor.recordedCommands)
	require.Contains(testInstance, arguments, "cherry-pick abc123")
	require.Contains(testInstance, arguments, "cherry-pick def456")
	require.Contains(testInstance, arguments, "push bob backport-42")

	require.Equal(testInstance, testPullRequestTitleConstant, fakeClient.recordedSubmission.Title)
	require.Equal(testInstance, testPullRequestBodyConstant, fakeClient.recordedSubmission.Body)
	require.Equal(testInstance, testUpstreamOwnerConstant, fakeClient.recordedSubmission.Owner)
	require.Equal(testInstance, testDestinationBranchConstant, fakeClient.recordedSubmission.BaseBranch)
	require.Equal(testInstance, "bob:backport-42", fakeClient.recordedSubmission.HeadReference())
}

func TestBackportNeverLogsToken(testInstance *testing.T) {
	observerCore, observerLogs := observer.New(zap.DebugLevel)
	logger := zap.New(observerCore)

	fakeClient := defaultFakeClient()
	service, creationError := backport.NewService(logger, fakeClient, newRecordingGitExecutor())
	require.NoError(testInstance, creationError)

	require.NoError(testInstance, service.Backport(context.Background(), defaultBackportOptions()))

	for _, loggedEntry := range observerLogs.All() {
		require.NotContains(testInstance, loggedEntry.Message, testTokenConstant)
		for _, loggedField := range loggedEntry.Context {
			require.NotContains(testInstance, loggedField.String, testTokenConstant)
		}
	}
}

func TestBackportPipelineFailurePreventsPullRequestCreation(testInstance *testing.T) {
	fakeClient := defaultFakeClient()
	executor := newRecordingGitExecutor()
	executor.failAtIndex = 0
	executor.failureError = errors.New(testPipelineFailureMessage)

	service, creationError := backport.NewService(zap.NewNop(), fakeClient, executor)
	require.NoError(testInstance, creationError)

	backportError := service.Backport(context.Background(), defaultBackportOptions())
	require.Error(testInstance, backportError)
	require.Contains(testInstance, backportError.Error(), testPipelineFailureMessage)
	require.NotContains(testInstance, fakeClient.recordedCalls, "CreatePullRequest")
	require.Len(testInstance, executor.recordedCommands, 1)
}

func TestBackportClientFailuresAbortBeforeGitActivity(testInstance *testing.T) {
	testCases := []struct {
		name            string
		prepareClient   func(*fakeCodeHostClient)
		expectedMessage string
	}{
		{
			name: "token_failure",
			prepareClient: func(client *fakeCodeHostClient) {
				client.tokenError = errors.New(testTokenFailureMessageConstant)
			},
			expectedMessage: testTokenFailureMessageConstant,
		},
		{
			name: "pull_request_failure",
			prepareClient: func(client *fakeCodeHostClient) {
				client.pullRequestError = errors.New(testLookupFailureMessageConstant)
			},
			expectedMessage: testLookupFailureMessageConstant,
		},
		{
			name: "commit_list_failure",
			prepareClient: func(client *fakeCodeHostClient) {
				client.commitListError = errors.New(testLookupFailureMessageConstant)
			},
			expectedMessage: testLookupFailureMessageConstant,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fakeClient := defaultFakeClient()
			testCase.prepareClient(fakeClient)
			executor := newRecordingGitExecutor()

			service, creationError := backport.NewService(zap.NewNop(), fakeClient, executor)
			require.NoError(testInstance, creationError)

			backportError := service.Backport(context.Background(), defaultBackportOptions())
			require.Error(testInstance, backportError)
			require.Contains(testInstance, backportError.Error(), testCase.expectedMessage)
			require.Empty(testInstance, executor.recordedCommands)
		})
	}
}

func TestBackportValidatesOptions(testInstance *testing.T) {
	testCases := []struct {
		name          string
		applyMutation func(*backport.BackportOptions)
	}{
		{name: "missing_username", applyMutation: func(options *backport.BackportOptions) { options.Username = "" }},
		{name: "missing_password", applyMutation: func(options *backport.BackportOptions) { options.Password = "" }},
		{name: "invalid_pull_request_number", applyMutation: func(options *backport.BackportOptions) { options.PullRequestNumber = 0 }},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fakeClient := defaultFakeClient()
			service, creationError := backport.NewService(zap.NewNop(), fakeClient, newRecordingGitExecutor())
			require.NoError(testInstance, creationError)

			options := defaultBackportOptions()
			testCase.applyMutation(&options)

			backportError := service.Backport(context.Background(), options)
			require.Error(testInstance, backportError)
			require.IsType(testInstance, backport.InvalidInputError{}, backportError)
			require.Empty(testInstance, fakeClient.recordedCalls)
		})
	}
}

func TestBackportUsesPullRequestAuthorForFetchRemote(testInstance *testing.T) {
	fakeClient := defaultFakeClient()
	fakeClient.pullRequestInfo.AuthorLogin = testUsernameConstant
	executor := newRecordingGitExecutor()

	service, creationError := backport.NewService(zap.NewNop(), fakeClient, executor)
	require.NoError(testInstance, creationError)

	require.NoError(testInstance, service.Backport(context.Background(), defaultBackportOptions()))

	arguments := renderedArguments(executor.recordedCommands)
	require.Contains(testInstance, arguments, "fetch bob")
	remoteAddSteps := 0
	for _, renderedArgument := range arguments {
		if strings.HasPrefix(renderedArgument, "remote add ") {
			remoteAddSteps++
		}
	}
	require.Equal(testInstance, 1, remoteAddSteps)
}
