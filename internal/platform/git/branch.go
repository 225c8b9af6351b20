// Package git reads repository details used to name session directories.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CurrentBranch returns the checked out branch of the repository containing
// the working directory.
func CurrentBranch(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--abbrev-ref", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get current git branch: %w", err)
	}

	branch := strings.TrimSpace(string(output))
	if branch == "" || branch == "HEAD" {
		return "", fmt.Errorf("not on a named branch")
	}

	return branch, nil
}

var unsafeChars = strings.NewReplacer(
	"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-",
	"\"", "-", "<", "-", ">", "-", "|", "-",
)

// SafeName turns a branch name into a single path element.
func SafeName(name string) string {
	return strings.Trim(unsafeChars.Replace(name), " -.")
}
