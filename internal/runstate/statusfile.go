package runstate

import (
	"encoding/json"
	"fmt"
	"time"
)

// StatusFileVersion is bumped when the status file shape changes
// incompatibly.
const StatusFileVersion = 1

// StatusFile is the polled run-status artifact. Run is nil between runs.
type StatusFile struct {
	Version     int       `json:"version"`
	Run         *RunState `json:"run"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// EncodeStatusFile renders the status file for run, stamped at updated.
func EncodeStatusFile(run *RunState, updated time.Time) ([]byte, error) {
	file := StatusFile{
		Version:     StatusFileVersion,
		Run:         run,
		LastUpdated: updated.UTC(),
	}
	return json.MarshalIndent(file, "", "  ")
}

// DecodeStatusFile parses a status file, rejecting versions this build does
// not understand.
func DecodeStatusFile(data []byte) (*StatusFile, error) {
	var file StatusFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse status file: %w", err)
	}
	if file.Version != StatusFileVersion {
		return nil, fmt.Errorf("status file version %d not supported (want %d)", file.Version, StatusFileVersion)
	}
	return &file, nil
}
