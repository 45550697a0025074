package sharepoint

import "fmt"

// ErrorCategory groups Repository Service failures for the LLM-facing
// error envelope: each category carries a suggested fix so an automated
// caller can self-correct or tell the user what to change.
type ErrorCategory string

const (
	CategoryAuthentication ErrorCategory = "AUTHENTICATION"
	CategoryAuthorization  ErrorCategory = "AUTHORIZATION"
	CategoryNetwork        ErrorCategory = "NETWORK"
	CategorySearchQuery    ErrorCategory = "SEARCH_QUERY"
	CategoryFileNotFound   ErrorCategory = "FILE_NOT_FOUND"
	CategoryConfiguration  ErrorCategory = "CONFIGURATION"
	CategoryUnknown        ErrorCategory = "UNKNOWN"
)

// ServiceError is a classified SharePoint failure.
type ServiceError struct {
	Category   ErrorCategory
	Message    string
	Solution   string
	StatusCode int
	Cause      error
}

func (e *ServiceError) Error() string {
	if e.Solution != "" {
		return fmt.Sprintf("[%s] %s. %s", e.Category, e.Message, e.Solution)
	}
	return fmt.Sprintf("[%s] %s", e.Category, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// classifyStatus converts an HTTP status from the Repository Service
// into a categorized error for the given operation.
func classifyStatus(statusCode int, operation, subject string) *ServiceError {
	switch {
	case statusCode == 401:
		return &ServiceError{
			Category:   CategoryAuthentication,
			Message:    fmt.Sprintf("%s was rejected with 401 Unauthorized", operation),
			Solution:   "Verify the client ID, tenant ID and certificate registration, and that the certificate has not expired",
			StatusCode: statusCode,
		}
	case statusCode == 403:
		return &ServiceError{
			Category:   CategoryAuthorization,
			Message:    fmt.Sprintf("%s was denied with 403 Forbidden", operation),
			Solution:   "Grant the app registration Sites.Read.All (or Sites.ReadWrite.All for uploads) and re-consent",
			StatusCode: statusCode,
		}
	case statusCode == 404:
		return &ServiceError{
			Category:   CategoryFileNotFound,
			Message:    fmt.Sprintf("'%s' was not found on the site", subject),
			Solution:   "Check the server-relative path; use sharepoint_search to locate the document first",
			StatusCode: statusCode,
		}
	case statusCode == 400 && operation == "search":
		return &ServiceError{
			Category:   CategorySearchQuery,
			Message:    "the search query was rejected as malformed",
			Solution:   "Simplify the query text; avoid unbalanced quotes and unsupported operators",
			StatusCode: statusCode,
		}
	case statusCode == 429 || statusCode >= 500:
		return &ServiceError{
			Category:   CategoryNetwork,
			Message:    fmt.Sprintf("%s failed with status %d", operation, statusCode),
			Solution:   "The service is throttling or unavailable; retry after a short wait",
			StatusCode: statusCode,
		}
	}
	return &ServiceError{
		Category:   CategoryUnknown,
		Message:    fmt.Sprintf("%s failed with status %d", operation, statusCode),
		StatusCode: statusCode,
	}
}

// classifyTransport wraps a transport-level failure (DNS, TLS, timeout).
func classifyTransport(operation string, cause error) *ServiceError {
	return &ServiceError{
		Category: CategoryNetwork,
		Message:  fmt.Sprintf("%s could not reach the SharePoint API", operation),
		Solution: "Check network connectivity, proxy settings and the site URL",
		Cause:    cause,
	}
}
