package instrumentation

import "strings"

// ExtractUserDomain returns the domain part of a user principal name so that
// metrics can be labelled per tenant domain instead of per user.
//
//	ExtractUserDomain("jane@contoso.com")  // "contoso.com"
//	ExtractUserDomain("invalid")           // "unknown"
//	ExtractUserDomain("")                  // "unknown"
func ExtractUserDomain(upn string) string {
	if upn == "" {
		return "unknown"
	}

	parts := strings.Split(upn, "@")
	if len(parts) == 2 && parts[1] != "" {
		return strings.ToLower(parts[1])
	}

	return "unknown"
}

// Operation types for Graph metrics and spans.
const (
	OperationList   = "list"
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)
