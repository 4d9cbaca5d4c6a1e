package execshell_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xen-org/backport/internal/execshell"
)

const (
	testExecutionSuccessCaseNameConstant         = "success"
	testExecutionFailureCaseNameConstant         = "failure_exit_code"
	testExecutionRunnerErrorCaseNameConstant     = "runner_error"
	testCommandArgumentConstant                  = "--version"
	testWorkingDirectoryConstant                 = "."
	testStandardErrorOutputConstant              = "failure"
	testLoggerInitializationCaseNameConstant     = "logger_validation"
	testRunnerInitializationCaseNameConstant     = "runner_validation"
	testSuccessfulInitializationCaseNameConstant = "successful_initialization"
)

type recordingCommandRunner struct {
	executionResult  execshell.ExecutionResult
	executionError   error
	recordedCommands []execshell.ShellCommand
}

func (runner *recordingCommandRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.recordedCommands = append(runner.recordedCommands, command)
	return runner.executionResult, runner.executionError
}

type recordingCommandObserver struct {
	startedCommands   []execshell.ShellCommand
	completedCommands []execshell.ShellCommand
	failedCommands    []execshell.ShellCommand
}

func (commandObserver *recordingCommandObserver) CommandStarted(command execshell.ShellCommand) {
	commandObserver.startedCommands = append(commandObserver.startedCommands, command)
}

func (commandObserver *recordingCommandObserver) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	commandObserver.completedCommands = append(commandObserver.completedCommands, command)
}

func (commandObserver *recordingCommandObserver) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	commandObserver.failedCommands = append(commandObserver.failedCommands, command)
}

func TestShellExecutorInitializationValidation(testInstance *testing.T) {
	testCases := []struct {
		name          string
		logger        *zap.Logger
		runner        execshell.CommandRunner
		expectError   error
		expectSuccess bool
	}{
		{
			name:        testLoggerInitializationCaseNameConstant,
			logger:      nil,
			runner:      &recordingCommandRunner{},
			expectError: execshell.ErrLoggerNotConfigured,
		},
		{
			name:        testRunnerInitializationCaseNameConstant,
			logger:      zap.NewNop(),
			runner:      nil,
			expectError: execshell.ErrCommandRunnerNotConfigured,
		},
		{
			name:          testSuccessfulInitializationCaseNameConstant,
			logger:        zap.NewNop(),
			runner:        &recordingCommandRunner{},
			expectSuccess: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor, creationError := execshell.NewShellExecutor(testCase.logger, testCase.runner)
			if testCase.expectSuccess {
				require.NoError(testInstance, creationError)
				require.NotNil(testInstance, executor)
			} else {
				require.Error(testInstance, creationError)
				require.ErrorIs(testInstance, creationError, testCase.expectError)
			}
		})
	}
}

func TestShellExecutorExecuteBehavior(testInstance *testing.T) {
	testCases := []struct {
		name             string
		runnerResult     execshell.ExecutionResult
		runnerError      error
		expectErrorType  any
		expectedLogCount int
	}{
		{
			name: testExecutionSuccessCaseNameConstant,
			runnerResult: execshell.ExecutionResult{
				StandardOutput: "ok",
				ExitCode:       0,
			},
			expectedLogCount: 2,
		},
		{
			name: testExecutionFailureCaseNameConstant,
			runnerResult: execshell.ExecutionResult{
				StandardError: testStandardErrorOutputConstant,
				ExitCode:      1,
			},
			expectErrorType:  execshell.CommandFailedError{},
			expectedLogCount: 2,
		},
		{
			name:             testExecutionRunnerErrorCaseNameConstant,
			runnerError:      errors.New("runner failure"),
			expectErrorType:  execshell.CommandExecutionError{},
			expectedLogCount: 2,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			observerCore, observerLogs := observer.New(zap.DebugLevel)
			logger := zap.New(observerCore)

			recordingRunner := &recordingCommandRunner{
				executionResult: testCase.runnerResult,
				executionError:  testCase.runnerError,
			}

			shellExecutor, creationError := execshell.NewShellExecutor(logger, recordingRunner)
			require.NoError(testInstance, creationError)

			commandDetails := execshell.CommandDetails{Arguments: []string{testCommandArgumentConstant}, WorkingDirectory: testWorkingDirectoryConstant}
			executionResult, executionError := shellExecutor.ExecuteGit(context.Background(), commandDetails)

			if testCase.expectErrorType != nil {
				require.Error(testInstance, executionError)
				require.IsType(testInstance, testCase.expectErrorType, executionError)
				require.Empty(testInstance, executionResult.StandardOutput)
			} else {
				require.NoError(testInstance, executionError)
				require.Equal(testInstance, testCase.runnerResult.StandardOutput, executionResult.StandardOutput)
			}

			require.Len(testInstance, observerLogs.All(), testCase.expectedLogCount)
		})
	}
}

func TestShellExecutorFailureErrorEmbedsCommandAndExitCode(testInstance *testing.T) {
	recordingRunner := &recordingCommandRunner{
		executionResult: execshell.ExecutionResult{ExitCode: 128, StandardError: testStandardErrorOutputConstant},
	}

	shellExecutor, creationError := execshell.NewShellExecutor(zap.NewNop(), recordingRunner)
	require.NoError(testInstance, creationError)

	_, executionError := shellExecutor.ExecuteGit(context.Background(), execshell.CommandDetails{Arguments: []string{"cherry-pick", "abc123"}})
	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), "git cherry-pick abc123")
	require.Contains(testInstance, executionError.Error(), "128")
	require.Contains(testInstance, executionError.Error(), testStandardErrorOutputConstant)
}

func TestShellExecutorNotifiesObservers(testInstance *testing.T) {
	testCases := []struct {
		name                   string
		runnerResult           execshell.ExecutionResult
		runnerError            error
		expectedStartedCount   int
		expectedCompletedCount int
		expectedFailedCount    int
	}{
		{
			name:                   testExecutionSuccessCaseNameConstant,
			runnerResult:           execshell.ExecutionResult{ExitCode: 0},
			expectedStartedCount:   1,
			expectedCompletedCount: 1,
		},
		{
			name:                   testExecutionFailureCaseNameConstant,
			runnerResult:           execshell.ExecutionResult{ExitCode: 1},
			expectedStartedCount:   1,
			expectedCompletedCount: 1,
		},
		{
			name:                 testExecutionRunnerErrorCaseNameConstant,
			runnerError:          errors.New("runner failure"),
			expectedStartedCount: 1,
			expectedFailedCount:  1,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			recordingRunner := &recordingCommandRunner{
				executionResult: testCase.runnerResult,
				executionError:  testCase.runnerError,
			}
			commandObserver := &recordingCommandObserver{}

			shellExecutor, creationError := execshell.NewShellExecutor(zap.NewNop(), recordingRunner, commandObserver)
			require.NoError(testInstance, creationError)

			_, _ = shellExecutor.ExecuteGit(context.Background(), execshell.CommandDetails{})

			require.Len(testInstance, commandObserver.startedCommands, testCase.expectedStartedCount)
			require.Len(testInstance, commandObserver.completedCommands, testCase.expectedCompletedCount)
			require.Len(testInstance, commandObserver.failedCommands, testCase.expectedFailedCount)
		})
	}
}
