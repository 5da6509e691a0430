package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// Status describes how git sees the store and plaintext key outputs
type Status struct {
	IsRepo         bool
	StoreTracked   bool
	TrackedOutputs []string
	ExposedOutputs []string
	IgnoredOutputs []string
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	return cmd.Run() == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(workDir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	// exit code 0 means ignored
	return cmd.Run() == nil
}

// Check inspects the store file and any plaintext outputs under workDir
func Check(workDir, storeFile string, outputs []string) *Status {
	status := &Status{}
	if !IsGitRepo(workDir) {
		return status
	}
	status.IsRepo = true
	if storeFile != "" {
		status.StoreTracked = IsTracked(workDir, storeFile)
	}

	for _, file := range outputs {
		switch {
		case IsTracked(workDir, file):
			status.TrackedOutputs = append(status.TrackedOutputs, file)
		case IsIgnored(workDir, file):
			status.IgnoredOutputs = append(status.IgnoredOutputs, file)
		default:
			status.ExposedOutputs = append(status.ExposedOutputs, file)
		}
	}
	return status
}

// PlaintextWarning returns a warning for a plaintext key written to path,
// or an empty string when git would not pick it up.
func PlaintextWarning(workDir, path string) string {
	status := Check(workDir, "", []string{path})
	if len(status.TrackedOutputs) > 0 {
		return fmt.Sprintf("warning: %s holds a plaintext key and is tracked by git (run: git rm --cached %s)", path, path)
	}
	if len(status.ExposedOutputs) > 0 {
		return fmt.Sprintf("warning: %s holds a plaintext key and is not in .gitignore", path)
	}
	return ""
}

// FormatStatus formats git status for display
func FormatStatus(status *Status, storeFile string) string {
	if !status.IsRepo {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit Integration:\n")

	if status.StoreTracked {
		result.WriteString(fmt.Sprintf("   ok: %s is tracked by git\n", storeFile))
	} else {
		result.WriteString(fmt.Sprintf("   info: %s not tracked (envelopes are safe to commit: git add %s)\n", storeFile, storeFile))
	}

	for _, file := range status.TrackedOutputs {
		result.WriteString(fmt.Sprintf("   error: plaintext key %s tracked by git (run: git rm --cached %s)\n", file, file))
	}
	for _, file := range status.ExposedOutputs {
		result.WriteString(fmt.Sprintf("   warning: plaintext key %s not in .gitignore\n", file))
	}
	if len(status.IgnoredOutputs) > 0 {
		result.WriteString(fmt.Sprintf("   ok: %d plaintext key file(s) in .gitignore\n", len(status.IgnoredOutputs)))
	}

	return result.String()
}
