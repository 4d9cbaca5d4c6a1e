package gitrepo

import (
	"fmt"
	"strings"
)

const (
	sshRemoteTemplateConstant            = "git@%s:%s/%s.git"
	httpsRemoteTemplateConstant          = "https://%s/%s/%s.git"
	remoteURLFormatErrorTemplateConstant = "%s: %s"
	requiredValueMessageConstant         = "value required"
	unknownProtocolMessageConstant       = "unsupported remote protocol"
)

// RemoteProtocol enumerates supported git remote protocols.
type RemoteProtocol string

// Supported remote protocols.
const (
	RemoteProtocolSSH   RemoteProtocol = RemoteProtocol("ssh")
	RemoteProtocolHTTPS RemoteProtocol = RemoteProtocol("https")
)

// RemoteURL represents a structured git remote location.
type RemoteURL struct {
	Protocol   RemoteProtocol
	Host       string
	Owner      string
	Repository string
}

// RemoteURLFormatError indicates a remote location could not be rendered.
type RemoteURLFormatError struct {
	Input   string
	Message string
}

// Error describes the formatting failure.
func (formatError RemoteURLFormatError) Error() string {
	return fmt.Sprintf(remoteURLFormatErrorTemplateConstant, formatError.Input, formatError.Message)
}

// UnsupportedProtocolError indicates the provided protocol cannot be formatted.
type UnsupportedProtocolError struct {
	Protocol RemoteProtocol
}

// Error describes the unsupported protocol.
func (protocolError UnsupportedProtocolError) Error() string {
	return fmt.Sprintf(remoteURLFormatErrorTemplateConstant, protocolError.Protocol, unknownProtocolMessageConstant)
}

// FormatRemoteURL creates a textual remote URL from a structured representation.
func FormatRemoteURL(remote RemoteURL) (string, error) {
	if len(strings.TrimSpace(remote.Host)) == 0 {
		return "", RemoteURLFormatError{Input: remote.Host, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(remote.Owner)) == 0 {
		return "", RemoteURLFormatError{Input: remote.Owner, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(remote.Repository)) == 0 {
		return "", RemoteURLFormatError{Input: remote.Repository, Message: requiredValueMessageConstant}
	}

	switch remote.Protocol {
	case RemoteProtocolSSH:
		return fmt.Sprintf(sshRemoteTemplateConstant, remote.Host, remote.Owner, remote.Repository), nil
	case RemoteProtocolHTTPS:
		return fmt.Sprintf(httpsRemoteTemplateConstant, remote.Host, remote.Owner, remote.Repository), nil
	default:
		return "", UnsupportedProtocolError{Protocol: remote.Protocol}
	}
}

// SSHRemoteURL renders the SSH remote address for an owner's fork on the host.
func SSHRemoteURL(host string, owner string, repository string) (string, error) {
	return FormatRemoteURL(RemoteURL{Protocol: RemoteProtocolSSH, Host: host, Owner: owner, Repository: repository})
}
