package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// CheckNodeForRenderer reports the Node.js runtime the renderer launcher
// will execute.
//
// npx and version-manager shims resolve the node binary that sits next to
// them before falling back to PATH, so a node sibling of the resolved
// launcher wins.
func CheckNodeForRenderer(launcher string) Status {
	result := Status{
		Name:        "Node.js",
		Description: "Runs the composition bundler and renderer",
	}

	binary := strings.TrimSpace(launcher)
	if binary != "" {
		if resolved, err := exec.LookPath(binary); err == nil {
			candidate := filepath.Join(filepath.Dir(resolved), executableName("node"))
			if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
				result.Command = candidate
				result.Available = true
				return result
			}
		}
	}

	if nodePath, err := exec.LookPath("node"); err == nil {
		result.Command = nodePath
		result.Available = true
		return result
	}

	result.Command = "node"
	result.Detail = fmt.Sprintf("binary %q not found", "node")
	return result
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
