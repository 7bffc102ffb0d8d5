package session

import (
	"errors"
	"fmt"
	"strings"

	"bandcampdl/internal/provider"
)

// FailureKind classifies a session-terminal outcome. Per-file tool failures
// never reach this level; they are logged at the file boundary.
type FailureKind string

const (
	FailureNone       FailureKind = ""
	FailureNoFiles    FailureKind = "no_files"
	FailureCancelled  FailureKind = "cancelled"
	FailureNetwork    FailureKind = "network"
	FailureAccess     FailureKind = "access"
	FailureNotFound   FailureKind = "not_found"
	FailureDiskSpace  FailureKind = "disk_space"
	FailureUnexpected FailureKind = "unexpected"
)

var failureTerms = []struct {
	kind  FailureKind
	terms []string
}{
	{FailureNetwork, []string{"network", "connection", "timeout", "dns", "unreachable"}},
	{FailureAccess, []string{"permission", "access denied", "forbidden", "403", "401"}},
	{FailureNotFound, []string{"not found", "404", "does not exist", "invalid url"}},
	{FailureDiskSpace, []string{"no space", "disk full", "insufficient space"}},
}

// Classify maps a provider error onto the failure taxonomy from its error
// text.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	if errors.Is(err, provider.ErrCancelled) {
		return FailureCancelled
	}
	lower := strings.ToLower(err.Error())
	for _, group := range failureTerms {
		for _, term := range group.terms {
			if strings.Contains(lower, term) {
				return group.kind
			}
		}
	}
	return FailureUnexpected
}

// FailureMessage renders the category-specific, remediation-bearing message
// for a terminal outcome.
func FailureMessage(kind FailureKind, err error) string {
	detail := ""
	if err != nil {
		detail = err.Error()
		if len(detail) > 200 {
			detail = detail[:200]
		}
	}
	switch kind {
	case FailureCancelled:
		return "Download cancelled by user."
	case FailureNoFiles:
		return "No files were downloaded. This album may require purchase or login. " +
			"Albums that require purchase cannot be downloaded without purchasing them first, " +
			"logging into your account, or using cookies for authentication."
	case FailureNetwork:
		return fmt.Sprintf("Network error: unable to connect. Check your internet connection and firewall. Original error: %s", detail)
	case FailureAccess:
		return fmt.Sprintf("Access error: cannot access this album. It may require purchase, login, or be private. Original error: %s", detail)
	case FailureNotFound:
		return fmt.Sprintf("Not found: the album URL is invalid or the album no longer exists. Check the URL. Original error: %s", detail)
	case FailureDiskSpace:
		return fmt.Sprintf("Disk space error: not enough space to save the download. Free up disk space and try again. Original error: %s", detail)
	default:
		return fmt.Sprintf("Unexpected error: %s. If this persists, check your connection, the URL, and available disk space.", detail)
	}
}
