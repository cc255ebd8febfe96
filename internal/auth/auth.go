// Package auth obtains GitHub credentials from the local environment.
package auth

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Credential is a bearer token plus, when known, the login it belongs to.
// The login feeds the assigned-to-me status mapping; an empty login simply
// means no issue maps to "todo" by assignment.
type Credential struct {
	Token string
	Login string
}

// ghHostsConfig represents the structure of ~/.config/gh/hosts.yml
type ghHostsConfig map[string]ghHost

type ghHost struct {
	OAuthToken string `yaml:"oauth_token"`
	User       string `yaml:"user"`
}

// Resolve attempts to obtain a GitHub credential from various sources:
// 1. Run `gh auth token` command (gh CLI with keyring storage)
// 2. Read from ~/.config/gh/hosts.yml (older gh CLI format)
// 3. GITHUB_TOKEN environment variable
func Resolve() (Credential, error) {
	login, _ := loginFromGhConfig()

	// Try gh auth token command first (handles keyring storage)
	if token, err := tokenFromGhCLI(); err == nil && token != "" {
		return Credential{Token: token, Login: login}, nil
	}

	// Try reading from gh hosts.yml config (older format)
	if cred, err := fromGhConfig(); err == nil && cred.Token != "" {
		return cred, nil
	}

	// Fall back to GITHUB_TOKEN env var
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return Credential{Token: token, Login: login}, nil
	}

	return Credential{}, fmt.Errorf("no GitHub token found: install gh CLI and run 'gh auth login', or set GITHUB_TOKEN env var")
}

// tokenFromGhCLI runs `gh auth token` to get the token from the gh CLI.
func tokenFromGhCLI() (string, error) {
	cmd := exec.Command("gh", "auth", "token")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("gh auth token failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// fromGhConfig reads token and login from ~/.config/gh/hosts.yml.
func fromGhConfig() (Credential, error) {
	config, err := readGhHosts()
	if err != nil {
		return Credential{}, err
	}

	if host, ok := config["github.com"]; ok && host.OAuthToken != "" {
		return Credential{Token: host.OAuthToken, Login: host.User}, nil
	}

	return Credential{}, fmt.Errorf("no oauth_token found in gh config")
}

// loginFromGhConfig reads just the authenticated login, for credential
// sources that carry a token but no identity.
func loginFromGhConfig() (string, error) {
	config, err := readGhHosts()
	if err != nil {
		return "", err
	}
	if host, ok := config["github.com"]; ok {
		return host.User, nil
	}
	return "", nil
}

func readGhHosts() (ghHostsConfig, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".config", "gh", "hosts.yml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read gh config: %w", err)
	}

	var config ghHostsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse gh config: %w", err)
	}

	return config, nil
}
