package audit

import (
	"fmt"
	"os"
	"path/filepath"
)

// Leftovers a previous run can strand inside a project tree when it is
// killed mid-scan. They are removed before every scan so a crash never
// poisons the next audit.
const (
	staleLockFile = ".scan.lock"
	staleScanDir  = "temp_scan_data"
)

// cleanupStaleArtifacts removes scan leftovers from a project directory.
// Failures are logged and ignored; a stale lock must not block the audit.
func cleanupStaleArtifacts(projectDir string) {
	lock := filepath.Join(projectDir, staleLockFile)
	if err := os.Remove(lock); err == nil {
		fmt.Fprintf(os.Stderr, "warning: removed stale scan lock %s\n", lock)
	} else if !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not remove stale scan lock %s: %v\n", lock, err)
	}

	scratch := filepath.Join(projectDir, staleScanDir)
	if info, err := os.Stat(scratch); err == nil && info.IsDir() {
		if err := os.RemoveAll(scratch); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not remove stale scan dir %s: %v\n", scratch, err)
		} else {
			fmt.Fprintf(os.Stderr, "warning: removed stale scan dir %s\n", scratch)
		}
	}
}
