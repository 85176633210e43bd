package local

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunDirName is the output directory reused when override is enabled.
const RunDirName = "SpeechScraperResult"

const stampLayout = "2006-01-02_15-04-05"

// RunDir returns the output directory for a run started at now: the fixed
// RunDirName under root when override is set, otherwise a fresh timestamped
// sibling.
func RunDir(root string, override bool, now time.Time) string {
	if override {
		return filepath.Join(root, RunDirName)
	}
	return filepath.Join(root, RunDirName+"_"+now.Format(stampLayout))
}

// PrepareRunDir creates the run directory. A timestamped directory that
// already exists is an error so that two runs never share one.
func PrepareRunDir(root string, override bool, now time.Time) (string, error) {
	dir := RunDir(root, override, now)
	if !override {
		if _, err := os.Stat(dir); err == nil {
			return "", fmt.Errorf("output directory %s already exists", dir)
		}
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return dir, nil
}
