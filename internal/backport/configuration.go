package backport

import (
	"os"
	"strings"

	"github.com/xen-org/backport/internal/githubapi"
)

const (
	defaultUpstreamOwnerConstant  = "xen-org"
	defaultGitHostConstant        = "github.com"
	defaultCommandLogPathConstant = "backport.log"

	configurationUpstreamOwnerKeyConstant    = "upstream_owner"
	configurationGitHostKeyConstant          = "git_host"
	configurationAPIBaseURLKeyConstant       = "api_base_url"
	configurationScratchDirectoryKeyConstant = "scratch_directory"
	configurationCommandLogKeyConstant       = "command_log"
)

// CommandConfiguration captures configuration values for the backport command.
type CommandConfiguration struct {
	UpstreamOwner    string `mapstructure:"upstream_owner"`
	GitHost          string `mapstructure:"git_host"`
	APIBaseURL       string `mapstructure:"api_base_url"`
	ScratchDirectory string `mapstructure:"scratch_directory"`
	CommandLogPath   string `mapstructure:"command_log"`
}

// DefaultCommandConfiguration provides the historical defaults: the canonical
// upstream owner, the public host, and a scratch clone under the system
// temporary directory.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		UpstreamOwner:    defaultUpstreamOwnerConstant,
		GitHost:          defaultGitHostConstant,
		APIBaseURL:       githubapi.DefaultAPIBaseURL(),
		ScratchDirectory: os.TempDir(),
		CommandLogPath:   defaultCommandLogPathConstant,
	}
}

// DefaultConfigurationValues exposes configuration defaults keyed beneath the
// provided root for registration with the configuration loader.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		rootKey + "." + configurationUpstreamOwnerKeyConstant:    defaults.UpstreamOwner,
		rootKey + "." + configurationGitHostKeyConstant:          defaults.GitHost,
		rootKey + "." + configurationAPIBaseURLKeyConstant:       defaults.APIBaseURL,
		rootKey + "." + configurationScratchDirectoryKeyConstant: defaults.ScratchDirectory,
		rootKey + "." + configurationCommandLogKeyConstant:       defaults.CommandLogPath,
	}
}

// sanitize trims configuration values and fills in defaults for empty fields.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := CommandConfiguration{
		UpstreamOwner:    strings.TrimSpace(configuration.UpstreamOwner),
		GitHost:          strings.TrimSpace(configuration.GitHost),
		APIBaseURL:       strings.TrimSpace(configuration.APIBaseURL),
		ScratchDirectory: strings.TrimSpace(configuration.ScratchDirectory),
		CommandLogPath:   strings.TrimSpace(configuration.CommandLogPath),
	}

	if len(sanitized.UpstreamOwner) == 0 {
		sanitized.UpstreamOwner = defaults.UpstreamOwner
	}
	if len(sanitized.GitHost) == 0 {
		sanitized.GitHost = defaults.GitHost
	}
	if len(sanitized.APIBaseURL) == 0 {
		sanitized.APIBaseURL = defaults.APIBaseURL
	}
	if len(sanitized.ScratchDirectory) == 0 {
		sanitized.ScratchDirectory = defaults.ScratchDirectory
	}
	if len(sanitized.CommandLogPath) == 0 {
		sanitized.CommandLogPath = defaults.CommandLogPath
	}

	return sanitized
}
