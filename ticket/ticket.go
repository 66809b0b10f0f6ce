// Package ticket resolves the issue-tracker ticket id that correlates a tag
// synchronization run with the change that caused it.
package ticket

import (
	"context"
	"os/exec"
	"regexp"
	"strings"
)

// DefaultPattern matches the project's ticket ids, e.g. OPHJOD-42.
const DefaultPattern = `OPHJOD-\d+`

// OverrideEnv explicitly sets the ticket id.
const OverrideEnv = "TICKET_ID"

// BranchEnvs are the CI variables holding the branch name, in lookup order.
var BranchEnvs = []string{"GITHUB_HEAD_REF", "GITHUB_REF_NAME", "BRANCH_NAME"}

// Resolve returns the first ticket id found in, in order: the override
// variable, the CI branch variables and the latest commit message. env looks
// up a variable; commitMessage may be nil. An empty result disables ticket
// tagging.
func Resolve(pattern *regexp.Regexp, env func(string) string, commitMessage func() string) string {
	candidates := []func() string{func() string { return env(OverrideEnv) }}
	for _, name := range BranchEnvs {
		name := name
		candidates = append(candidates, func() string { return env(name) })
	}
	if commitMessage != nil {
		candidates = append(candidates, commitMessage)
	}

	for _, c := range candidates {
		if id := pattern.FindString(c()); id != "" {
			return id
		}
	}
	return ""
}

// GitCommitMessage returns a commitMessage func running
// "git log -1 --pretty=%B" in dir. Failures yield an empty message.
func GitCommitMessage(ctx context.Context, dir string) func() string {
	return func() string {
		cmd := exec.CommandContext(ctx, "git", "log", "-1", "--pretty=%B")
		cmd.Dir = dir
		out, err := cmd.Output()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(out))
	}
}
