package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePath validates a folder path within a repository for safety.
// It prevents path traversal attacks and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

var commitSHARegex = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)

// ValidateCommitSHA checks that sha is a full 40 character hex commit id.
func ValidateCommitSHA(sha string) error {
	if !commitSHARegex.MatchString(sha) {
		return New(ErrCodeInvalidInput, "commit must be exactly 40 hex characters, got %q", sha)
	}
	return nil
}

// versionIDRegex matches subscriber package version ids (15 or 18 chars, 04t prefix).
var versionIDRegex = regexp.MustCompile(`^04t[0-9A-Za-z]{12}([0-9A-Za-z]{3})?$`)

// ValidateVersionID validates a package version id such as "04t000000000000".
func ValidateVersionID(id string) error {
	if !versionIDRegex.MatchString(id) {
		return New(ErrCodeInvalidDependency, "invalid package version id: %q", id)
	}
	return nil
}
