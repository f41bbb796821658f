package github

import (
	"regexp"

	"github.com/matzehuels/depflow/pkg/errors"
)

var (
	// GitHub users and orgs: 1-39 alphanumerics or hyphens, not starting with a hyphen
	validOwner = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{0,38}$`)
	// GitHub repository names: 1-100 alphanumerics, hyphens, underscores or dots
	validRepo = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,100}$`)
)

// ValidateOwner validates a GitHub user or organization name.
func ValidateOwner(owner string) error {
	if !validOwner.MatchString(owner) {
		return errors.New(errors.ErrCodeInvalidInput, "invalid GitHub owner %q", owner)
	}
	return nil
}

// ValidateRepo validates a GitHub repository name.
func ValidateRepo(repo string) error {
	if !validRepo.MatchString(repo) {
		return errors.New(errors.ErrCodeInvalidInput, "invalid GitHub repository name %q", repo)
	}
	return nil
}

// ValidateRepoRef validates both halves of owner/repo.
func ValidateRepoRef(owner, repo string) error {
	if err := ValidateOwner(owner); err != nil {
		return err
	}
	return ValidateRepo(repo)
}
