package report

import "path/filepath"

// RunDir returns the artifact directory for one run under runsRoot.
func RunDir(runsRoot, runID string) string {
	return filepath.Join(runsRoot, runID)
}

// StatusPath returns the status file location inside a run directory.
func StatusPath(runDir string) string {
	return filepath.Join(runDir, statusFileName)
}

// SummaryPath returns the full summary location inside a run directory.
func SummaryPath(runDir string) string {
	return filepath.Join(runDir, summaryFileName)
}

// LiteSummaryPath returns the lite summary location inside a run directory.
func LiteSummaryPath(runDir string) string {
	return filepath.Join(runDir, liteFileName)
}

// ReportPath returns the rendered report location inside a run directory.
func ReportPath(runDir string) string {
	return filepath.Join(runDir, reportFileName)
}

// LatestPath returns the latest-run pointer location under runsRoot.
func LatestPath(runsRoot string) string {
	return filepath.Join(runsRoot, latestFileName)
}
