package backport

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xen-org/backport/internal/execshell"
	"github.com/xen-org/backport/internal/githubapi"
)

const (
	commandUseConstant                    = "run"
	commandShortDescriptionConstant       = "Backport a pull request onto another branch"
	commandLongDescriptionConstant        = "run fetches a pull request, cherry-picks its commits onto a new branch in a scratch clone, pushes the branch to the invoking user's fork, and opens a new pull request against the destination branch."
	commandExecutionErrorTemplateConstant = "backport failed: %w"
	unexpectedArgumentsMessageConstant    = "run does not accept positional arguments"
	confirmationLineTemplateConstant      = "Backporting pull request #%d of %s onto %s as %s\n"

	flagUsernameNameConstant            = "username"
	flagUsernameShorthandConstant       = "u"
	flagUsernameDescriptionConstant     = "Code host login of the user performing the backport"
	flagPasswordNameConstant            = "password"
	flagPasswordShorthandConstant       = "p"
	flagPasswordDescriptionConstant     = "Password used once to obtain an API token"
	flagPullRequestNameConstant         = "pull-request"
	flagPullRequestShorthandConstant    = "n"
	flagPullRequestDescriptionConstant  = "Number of the pull request to backport"
	flagRepositoryNameConstant          = "repository"
	flagRepositoryShorthandConstant     = "r"
	flagRepositoryDescriptionConstant   = "Repository name under the upstream owner"
	flagDestinationNameConstant         = "destination-branch"
	flagDestinationShorthandConstant    = "d"
	flagDestinationDescriptionConstant  = "Branch the new pull request targets"
	flagBranchNameConstant              = "branch"
	flagBranchShorthandConstant         = "b"
	flagBranchDescriptionConstant       = "Name of the new branch carrying the cherry-picked commits"
	flagCommitterNameNameConstant       = "committer-name"
	flagCommitterNameShorthandConstant  = "g"
	flagCommitterNameDescription        = "Committer name recorded on the cherry-picked commits"
	flagCommitterEmailNameConstant      = "committer-email"
	flagCommitterEmailShorthandConstant = "e"
	flagCommitterEmailDescription       = "Committer email recorded on the cherry-picked commits"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies the resolved command configuration.
type ConfigurationProvider func() CommandConfiguration

// BackportRunner abstracts the service for command-level testing.
type BackportRunner interface {
	Backport(executionContext context.Context, options BackportOptions) error
}

// CommandBuilder assembles the Cobra command for the backport workflow.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	Runner                BackportRunner
}

// Build constructs the run command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().StringP(flagUsernameNameConstant, flagUsernameShorthandConstant, "", flagUsernameDescriptionConstant)
	command.Flags().StringP(flagPasswordNameConstant, flagPasswordShorthandConstant, "", flagPasswordDescriptionConstant)
	command.Flags().IntP(flagPullRequestNameConstant, flagPullRequestShorthandConstant, 0, flagPullRequestDescriptionConstant)
	command.Flags().StringP(flagRepositoryNameConstant, flagRepositoryShorthandConstant, "", flagRepositoryDescriptionConstant)
	command.Flags().StringP(flagDestinationNameConstant, flagDestinationShorthandConstant, "", flagDestinationDescriptionConstant)
	command.Flags().StringP(flagBranchNameConstant, flagBranchShorthandConstant, "", flagBranchDescriptionConstant)
	command.Flags().StringP(flagCommitterNameNameConstant, flagCommitterNameShorthandConstant, "", flagCommitterNameDescription)
	command.Flags().StringP(flagCommitterEmailNameConstant, flagCommitterEmailShorthandConstant, "", flagCommitterEmailDescription)

	requiredFlagNames := []string{
		flagUsernameNameConstant,
		flagPasswordNameConstant,
		flagPullRequestNameConstant,
		flagRepositoryNameConstant,
		flagDestinationNameConstant,
		flagBranchNameConstant,
		flagCommitterNameNameConstant,
		flagCommitterEmailNameConstant,
	}
	for _, requiredFlagName := range requiredFlagNames {
		if markError := command.MarkFlagRequired(requiredFlagName); markError != nil {
			return nil, markError
		}
	}

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	configuration := builder.resolveConfiguration()

	options, optionsError := builder.parseOptions(command, configuration)
	if optionsError != nil {
		return optionsError
	}

	command.Printf(confirmationLineTemplateConstant, options.PullRequestNumber, options.Repository, options.DestinationBranch, options.NewBranchName)

	logger := builder.resolveLogger()
	runner, runnerError := builder.resolveRunner(logger, configuration)
	if runnerError != nil {
		return runnerError
	}

	if backportError := runner.Backport(command.Context(), options); backportError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, backportError)
	}

	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, configuration CommandConfiguration) (BackportOptions, error) {
	usernameValue, _ := command.Flags().GetString(flagUsernameNameConstant)
	passwordValue, _ := command.Flags().GetString(flagPasswordNameConstant)
	pullRequestValue, _ := command.Flags().GetInt(flagPullRequestNameConstant)
	repositoryValue, _ := command.Flags().GetString(flagRepositoryNameConstant)
	destinationValue, _ := command.Flags().GetString(flagDestinationNameConstant)
	branchValue, _ := command.Flags().GetString(flagBranchNameConstant)
	committerNameValue, _ := command.Flags().GetString(flagCommitterNameNameConstant)
	committerEmailValue, _ := command.Flags().GetString(flagCommitterEmailNameConstant)

	backportOptions := BackportOptions{
		Username:          usernameValue,
		Password:          passwordValue,
		PullRequestNumber: pullRequestValue,
		Repository:        repositoryValue,
		DestinationBranch: destinationValue,
		NewBranchName:     branchValue,
		CommitterName:     committerNameValue,
		CommitterEmail:    committerEmailValue,
		UpstreamOwner:     configuration.UpstreamOwner,
		GitHost:           configuration.GitHost,
		ScratchDirectory:  configuration.ScratchDirectory,
	}

	return backportOptions, nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

func (builder *CommandBuilder) resolveRunner(logger *zap.Logger, configuration CommandConfiguration) (BackportRunner, error) {
	if builder.Runner != nil {
		return builder.Runner, nil
	}

	commandLog, commandLogError := execshell.NewFileCommandLog(configuration.CommandLogPath)
	if commandLogError != nil {
		return nil, commandLogError
	}

	shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), commandLog)
	if executorError != nil {
		return nil, executorError
	}

	client, clientError := githubapi.NewClient(nil, configuration.APIBaseURL)
	if clientError != nil {
		return nil, clientError
	}

	service, serviceError := NewService(logger, client, shellExecutor)
	if serviceError != nil {
		return nil, serviceError
	}

	return service, nil
}
