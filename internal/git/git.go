package git

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitStatus contains git integration status information
type GitStatus struct {
	IsRepo         bool
	DataDir        string   // Data directory relative to the work tree
	DataDirIgnored bool     // Covered by .gitignore (good)
	TrackedFiles   []string // Files under the data directory tracked by git (bad)
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	err := cmd.Run()
	return err == nil
}

// TrackedFiles lists files under path that are tracked by git
func TrackedFiles(workDir, path string) []string {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()
	if err != nil {
		return nil
	}

	var files []string
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if line != "" {
			files = append(files, line)
		}
	}
	return files
}

// IsIgnored checks if a path is ignored by git (handles all .gitignore files)
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	err := cmd.Run()

	// git check-ignore returns exit code 0 if the path is ignored
	return err == nil
}

// CheckDataDir checks how git sees the data directory. A data directory
// outside workDir reports as not in a repository.
func CheckDataDir(workDir, dataDir string) (*GitStatus, error) {
	status := &GitStatus{}

	if !IsGitRepo(workDir) {
		return status, nil
	}

	absWork, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	absData, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	rel, err := filepath.Rel(absWork, absData)
	if err != nil || !filepath.IsLocal(rel) {
		return status, nil
	}

	status.IsRepo = true
	status.DataDir = filepath.ToSlash(rel)
	status.DataDirIgnored = IsIgnored(workDir, rel+"/")
	status.TrackedFiles = TrackedFiles(workDir, rel)

	return status, nil
}

// FormatGitStatus formats git status for display
func FormatGitStatus(status *GitStatus) string {
	if !status.IsRepo {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit Integration:\n")

	if len(status.TrackedFiles) > 0 {
		result.WriteString(fmt.Sprintf("   error: %d file(s) in %s tracked by git:\n", len(status.TrackedFiles), status.DataDir))
		for _, file := range status.TrackedFiles {
			result.WriteString(fmt.Sprintf("      - %s (run: git rm --cached %s)\n", file, file))
		}
	} else {
		result.WriteString(fmt.Sprintf("   ok: nothing in %s is tracked by git\n", status.DataDir))
	}

	if status.DataDirIgnored {
		result.WriteString(fmt.Sprintf("   ok: %s is in .gitignore\n", status.DataDir))
	} else {
		result.WriteString(fmt.Sprintf("   warning: %s not in .gitignore (add %s/ to .gitignore)\n", status.DataDir, status.DataDir))
	}

	return result.String()
}
