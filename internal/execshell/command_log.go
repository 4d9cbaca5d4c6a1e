package execshell

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	commandLogPathRequiredMessageConstant      = "command log path required"
	commandLogFilePermissionsConstant          = 0o644
	commandLogMarkerTemplateConstant           = "=== %s %s (in %s)\n"
	commandLogExecutionFailureTemplateConstant = "=== %s %s failed to execute: %s\n"
	commandLogTimestampLayoutConstant          = time.RFC3339
	commandLogTrailingNewlineConstant          = "\n"
)

// FileCommandLog appends the captured output of every executed command to a
// single log file. The file is created on first use and only ever appended
// to; successive runs accumulate.
type FileCommandLog struct {
	logFilePath string
	clock       func() time.Time
}

// NewFileCommandLog constructs a command log observer writing to logFilePath.
func NewFileCommandLog(logFilePath string) (*FileCommandLog, error) {
	trimmedPath := strings.TrimSpace(logFilePath)
	if len(trimmedPath) == 0 {
		return nil, fmt.Errorf(commandLogPathRequiredMessageConstant)
	}
	return &FileCommandLog{logFilePath: trimmedPath, clock: time.Now}, nil
}

// CommandStarted implements CommandEventObserver; start events are not persisted.
func (commandLog *FileCommandLog) CommandStarted(ShellCommand) {}

// CommandCompleted appends a timestamped marker followed by the command's
// standard output and standard error.
func (commandLog *FileCommandLog) CommandCompleted(command ShellCommand, result ExecutionResult) {
	marker := fmt.Sprintf(commandLogMarkerTemplateConstant, commandLog.timestamp(), command.String(), commandLog.describeWorkingDirectory(command))
	commandLog.append(marker + ensureTrailingNewline(result.StandardOutput) + ensureTrailingNewline(result.StandardError))
}

// CommandExecutionFailed records commands that never produced a result.
func (commandLog *FileCommandLog) CommandExecutionFailed(command ShellCommand, failure error) {
	commandLog.append(fmt.Sprintf(commandLogExecutionFailureTemplateConstant, commandLog.timestamp(), command.String(), describeFailure(failure)))
}

// Path reports the log file location.
func (commandLog *FileCommandLog) Path() string {
	return commandLog.logFilePath
}

func (commandLog *FileCommandLog) timestamp() string {
	return commandLog.clock().Format(commandLogTimestampLayoutConstant)
}

func (commandLog *FileCommandLog) describeWorkingDirectory(command ShellCommand) string {
	if len(command.Details.WorkingDirectory) == 0 {
		return "."
	}
	return command.Details.WorkingDirectory
}

func (commandLog *FileCommandLog) append(content string) {
	logFile, openError := os.OpenFile(commandLog.logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, commandLogFilePermissionsConstant)
	if openError != nil {
		return
	}
	defer logFile.Close()

	_, _ = logFile.WriteString(content)
}

func ensureTrailingNewline(content string) string {
	if len(content) == 0 {
		return ""
	}
	if strings.HasSuffix(content, commandLogTrailingNewlineConstant) {
		return content
	}
	return content + commandLogTrailingNewlineConstant
}
