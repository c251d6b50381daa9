// Package selfupdate checks whether a newer release of the terminal has
// been published. Installing the release is left to the process supervisor.
package selfupdate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// DefaultAPIURL is the GitHub REST API endpoint.
const DefaultAPIURL = "https://api.github.com"

// Status is the result of an update check.
type Status struct {
	// Available is true when Version is newer than the running version.
	Available bool

	// Version is the latest published version, "v" prefixed.
	Version string
}

// Checker looks up the latest release.
type Checker interface {
	Check(ctx context.Context) (Status, error)
}

// Disabled never reports an update.
type Disabled struct{}

// Check implements Checker.
func (Disabled) Check(context.Context) (Status, error) { return Status{}, nil }

// GitHubChecker compares the latest GitHub release tag of a repository with
// the running version.
type GitHubChecker struct {
	Owner   string
	Repo    string
	Current string

	// APIURL defaults to DefaultAPIURL.
	APIURL string
	HTTP   *http.Client
}

// NewGitHubChecker returns a checker for github.com/owner/repo.
func NewGitHubChecker(owner, repo, current string) *GitHubChecker {
	return &GitHubChecker{
		Owner:   owner,
		Repo:    repo,
		Current: current,
		APIURL:  DefaultAPIURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Check implements Checker. A running version that is not valid semver
// (e.g. "dev") is never reported as outdated.
func (c *GitHubChecker) Check(ctx context.Context) (Status, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", strings.TrimRight(c.APIURL, "/"), c.Owner, c.Repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Status{}, fmt.Errorf("check for update: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Status{}, fmt.Errorf("check for update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Status{}, fmt.Errorf("check for update: unexpected status %d", resp.StatusCode)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return Status{}, fmt.Errorf("check for update: decode release: %w", err)
	}

	latest := Canonical(release.TagName)
	if !semver.IsValid(latest) {
		return Status{}, fmt.Errorf("check for update: invalid release tag %q", release.TagName)
	}

	current := Canonical(c.Current)
	if !semver.IsValid(current) {
		return Status{Version: latest}, nil
	}
	return Status{Available: semver.Compare(latest, current) > 0, Version: latest}, nil
}

// Canonical adds the "v" prefix semver expects.
func Canonical(version string) string {
	version = strings.TrimSpace(version)
	if version == "" || strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}
