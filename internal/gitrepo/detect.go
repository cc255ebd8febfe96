// Package gitrepo detects which GitHub repository a directory belongs to.
package gitrepo

import (
	"fmt"
	"os/exec"
	"strings"
)

// Detect reads the local git remote URL in dir and extracts an
// "owner/repo" identifier. Returns an error when dir has no usable remote.
func Detect(dir string) (string, error) {
	cmd := exec.Command("git", "remote", "get-url", "origin")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("no git remote found in %s: %w", dir, err)
	}

	repo, ok := ParseRemoteURL(strings.TrimSpace(string(output)))
	if !ok {
		return "", fmt.Errorf("remote URL %q is not a GitHub repository", strings.TrimSpace(string(output)))
	}
	return repo, nil
}

// ParseRemoteURL extracts "owner/repo" from an HTTPS or SSH GitHub remote
// URL. Returns false when the URL matches neither form.
func ParseRemoteURL(remoteURL string) (string, bool) {
	// SSH form: git@github.com:owner/repo.git
	if strings.HasPrefix(remoteURL, "git@github.com:") {
		path := strings.TrimSuffix(strings.TrimPrefix(remoteURL, "git@github.com:"), ".git")
		return ownerRepo(path)
	}

	// HTTPS form: https://github.com/owner/repo.git
	for _, prefix := range []string{"https://github.com/", "http://github.com/"} {
		if strings.HasPrefix(remoteURL, prefix) {
			path := strings.TrimSuffix(strings.TrimPrefix(remoteURL, prefix), ".git")
			return ownerRepo(path)
		}
	}

	return "", false
}

func ownerRepo(path string) (string, bool) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return "", false
	}
	return segments[0] + "/" + segments[1], true
}
