package githubapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
)

const (
	defaultAPIBaseURLConstant              = "https://api.github.com"
	baseURLNotConfiguredMessageConstant    = "api base url not configured"
	acceptHeaderNameConstant               = "Accept"
	acceptHeaderValueConstant              = "application/vnd.github+json"
	contentTypeHeaderNameConstant          = "Content-Type"
	contentTypeHeaderValueConstant         = "application/json"
	authorizationHeaderNameConstant        = "Authorization"
	tokenAuthorizationTemplateConstant     = "token %s"
	authorizationsEndpointConstant         = "/authorizations"
	issueEndpointTemplateConstant          = "/repos/%s/%s/issues/%d"
	pullRequestCommitsTemplateConstant     = "/repos/%s/%s/pulls/%d/commits"
	pullRequestsEndpointTemplateConstant   = "/repos/%s/%s/pulls"
	headReferenceTemplateConstant          = "%s:%s"
	tokenNoteValueConstant                 = "backport"
	tokenScopeRepositoryConstant           = "repo"
	operationErrorTemplateConstant         = "%s operation failed: %s"
	statusErrorTemplateConstant            = "%s returned status %d (expected %d)%s"
	statusErrorBodySuffixTemplateConstant  = ": %s"
	responseDecodingErrorTemplateConstant  = "%s response decoding failed: %s"
	payloadEncodingErrorTemplateConstant   = "%s payload encoding failed: %s"
	createTokenOperationNameConstant       = OperationName("CreateToken")
	getPullRequestOperationNameConstant    = OperationName("GetPullRequest")
	listCommitsOperationNameConstant       = OperationName("GetPullRequestCommits")
	createPullRequestOperationNameConstant = OperationName("CreatePullRequest")
)

// OperationName describes a named REST operation supported by the client.
type OperationName string

// PullRequestInfo holds the metadata reused when opening the backport PR.
type PullRequestInfo struct {
	Title       string
	Body        string
	AuthorLogin string
}

// PullRequestSubmission describes the pull request to create.
type PullRequestSubmission struct {
	Title      string
	Body       string
	Owner      string
	Repository string
	BaseBranch string
	HeadOwner  string
	HeadBranch string
}

// HeadReference renders the submission head in the host's owner:branch form.
func (submission PullRequestSubmission) HeadReference() string {
	return fmt.Sprintf(headReferenceTemplateConstant, submission.HeadOwner, submission.HeadBranch)
}

// RequestFailedError wraps transport-level failures.
type RequestFailedError struct {
	Operation OperationName
	Cause     error
}

// Error describes the request failure.
func (requestError RequestFailedError) Error() string {
	return fmt.Sprintf(operationErrorTemplateConstant, requestError.Operation, requestError.Cause)
}

// Unwrap exposes the underlying cause.
func (requestError RequestFailedError) Unwrap() error {
	return requestError.Cause
}

// StatusError reports a response with an unexpected HTTP status code.
type StatusError struct {
	Operation      OperationName
	ExpectedStatus int
	ActualStatus   int
	ResponseBody   string
}

// Error describes the status mismatch including any response body.
func (statusError StatusError) Error() string {
	bodySuffix := ""
	trimmedBody := strings.TrimSpace(statusError.ResponseBody)
	if len(trimmedBody) > 0 {
		bodySuffix = fmt.Sprintf(statusErrorBodySuffixTemplateConstant, trimmedBody)
	}
	return fmt.Sprintf(statusErrorTemplateConstant, statusError.Operation, statusError.ActualStatus, statusError.ExpectedStatus, bodySuffix)
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// PayloadEncodingError indicates JSON encoding issues.
type PayloadEncodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the encoding failure.
func (encodingError PayloadEncodingError) Error() string {
	return fmt.Sprintf(payloadEncodingErrorTemplateConstant, encodingError.Operation, encodingError.Cause)
}

// Unwrap exposes the underlying error.
func (encodingError PayloadEncodingError) Unwrap() error {
	return encodingError.Cause
}

// ErrBaseURLNotConfigured indicates the client was constructed without a base URL.
var ErrBaseURLNotConfigured = errors.New(baseURLNotConfiguredMessageConstant)

// Client issues authenticated REST calls against the code host.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient constructs a client for the provided API base URL. A nil
// httpClient falls back to http.DefaultClient.
func NewClient(httpClient *http.Client, baseURL string) (*Client, error) {
	trimmedBaseURL := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if len(trimmedBaseURL) == 0 {
		return nil, ErrBaseURLNotConfigured
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, baseURL: trimmedBaseURL}, nil
}

// DefaultAPIBaseURL returns the canonical API root for the public host.
func DefaultAPIBaseURL() string {
	return defaultAPIBaseURLConstant
}

// CreateToken exchanges a username and password for an API token through the
// host's token creation endpoint. The returned token is held in memory only;
// callers must never log or persist it.
func (client *Client) CreateToken(executionContext context.Context, username string, password string) (string, error) {
	payload := struct {
		Scopes []string `json:"scopes"`
		Note   string   `json:"note"`
	}{
		Scopes: []string{tokenScopeRepositoryConstant},
		Note:   tokenNoteValueConstant,
	}

	payloadBytes, encodingError := json.Marshal(payload)
	if encodingError != nil {
		return "", PayloadEncodingError{Operation: createTokenOperationNameConstant, Cause: encodingError}
	}

	request, requestError := http.NewRequestWithContext(executionContext, http.MethodPost, client.baseURL+authorizationsEndpointConstant, bytes.NewReader(payloadBytes))
	if requestError != nil {
		return "", RequestFailedError{Operation: createTokenOperationNameConstant, Cause: requestError}
	}
	request.SetBasicAuth(username, password)
	request.Header.Set(contentTypeHeaderNameConstant, contentTypeHeaderValueConstant)
	request.Header.Set(acceptHeaderNameConstant, acceptHeaderValueConstant)

	responseBody, callError := client.do(request, createTokenOperationNameConstant, http.StatusCreated)
	if callError != nil {
		return "", callError
	}

	var response struct {
		Token string `json:"token"`
	}
	if decodingError := json.Unmarshal(responseBody, &response); decodingError != nil {
		return "", ResponseDecodingError{Operation: createTokenOperationNameConstant, Cause: decodingError}
	}

	return response.Token, nil
}

// GetPullRequest fetches pull request metadata through the issues endpoint,
// which the host documents as authoritative for title, body, and author.
func (client *Client) GetPullRequest(executionContext context.Context, token string, owner string, repository string, issueNumber int) (PullRequestInfo, error) {
	endpoint := client.baseURL + fmt.Sprintf(issueEndpointTemplateConstant, owner, repository, issueNumber)

	responseBody, callError := client.get(executionContext, token, endpoint, getPullRequestOperationNameConstant)
	if callError != nil {
		return PullRequestInfo{}, callError
	}

	var response struct {
		Title string `json:"title"`
		Body  string `json:"body"`
		User  struct {
			Login string `json:"login"`
		} `json:"user"`
	}
	if decodingError := json.Unmarshal(responseBody, &response); decodingError != nil {
		return PullRequestInfo{}, ResponseDecodingError{Operation: getPullRequestOperationNameConstant, Cause: decodingError}
	}

	return PullRequestInfo{
		Title:       response.Title,
		Body:        response.Body,
		AuthorLogin: response.User.Login,
	}, nil
}

// GetPullRequestCommits lists the SHAs of the pull request's commits in the
// order the host returns them, which is the order they must be cherry-picked.
func (client *Client) GetPullRequestCommits(executionContext context.Context, token string, owner string, repository string, issueNumber int) ([]string, error) {
	endpoint := client.baseURL + fmt.Sprintf(pullRequestCommitsTemplateConstant, owner, repository, issueNumber)

	responseBody, callError := client.get(executionContext, token, endpoint, listCommitsOperationNameConstant)
	if callError != nil {
		return nil, callError
	}

	var response []struct {
		SHA string `json:"sha"`
	}
	if decodingError := json.Unmarshal(responseBody, &response); decodingError != nil {
		return nil, ResponseDecodingError{Operation: listCommitsOperationNameConstant, Cause: decodingError}
	}

	commitSHAs := make([]string, 0, len(response))
	for _, commitEntry := range response {
		commitSHAs = append(commitSHAs, commitEntry.SHA)
	}

	return commitSHAs, nil
}

// CreatePullRequest opens a new pull request and returns the raw response
// body for logging by the caller.
func (client *Client) CreatePullRequest(executionContext context.Context, token string, submission PullRequestSubmission) (string, error) {
	payload := struct {
		Title string `json:"title"`
		Body  string `json:"body"`
		Base  string `json:"base"`
		Head  string `json:"head"`
	}{
		Title: submission.Title,
		Body:  submission.Body,
		Base:  submission.BaseBranch,
		Head:  submission.HeadReference(),
	}

	payloadBytes, encodingError := json.Marshal(payload)
	if encodingError != nil {
		return "", PayloadEncodingError{Operation: createPullRequestOperationNameConstant, Cause: encodingError}
	}

	endpoint := client.baseURL + fmt.Sprintf(pullRequestsEndpointTemplateConstant, submission.Owner, submission.Repository)

	request, requestError := http.NewRequestWithContext(executionContext, http.MethodPost, endpoint, bytes.NewReader(payloadBytes))
	if requestError != nil {
		return "", RequestFailedError{Operation: createPullRequestOperationNameConstant, Cause: requestError}
	}
	client.setCommonHeaders(request, token)
	request.Header.Set(contentTypeHeaderNameConstant, contentTypeHeaderValueConstant)

	responseBody, callError := client.do(request, createPullRequestOperationNameConstant, http.StatusCreated)
	if callError != nil {
		return "", callError
	}

	return string(responseBody), nil
}

func (client *Client) get(executionContext context.Context, token string, endpoint string, operation OperationName) ([]byte, error) {
	request, requestError := http.NewRequestWithContext(executionContext, http.MethodGet, endpoint, nil)
	if requestError != nil {
		return nil, RequestFailedError{Operation: operation, Cause: requestError}
	}
	client.setCommonHeaders(request, token)

	return client.do(request, operation, http.StatusOK)
}

func (client *Client) setCommonHeaders(request *http.Request, token string) {
	request.Header.Set(acceptHeaderNameConstant, acceptHeaderValueConstant)
	if len(token) > 0 {
		request.Header.Set(authorizationHeaderNameConstant, fmt.Sprintf(tokenAuthorizationTemplateConstant, token))
	}
}

func (client *Client) do(request *http.Request, operation OperationName, expectedStatus int) ([]byte, error) {
	response, responseError := client.httpClient.Do(request)
	if responseError != nil {
		return nil, RequestFailedError{Operation: operation, Cause: responseError}
	}
	defer response.Body.Close()

	responseBody, readError := io.ReadAll(response.Body)
	if readError != nil {
		return nil, RequestFailedError{Operation: operation, Cause: readError}
	}

	if response.StatusCode != expectedStatus {
		return nil, StatusError{
			Operation:      operation,
			ExpectedStatus: expectedStatus,
			ActualStatus:   response.StatusCode,
			ResponseBody:   string(responseBody),
		}
	}

	return responseBody, nil
}
