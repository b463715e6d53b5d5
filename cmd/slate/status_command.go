package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"slate/internal/config"
	"slate/internal/report"
	"slate/internal/runstate"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var watch bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status [run-id]",
		Short: "Show the progress of a run",
		Long: strings.TrimSpace(`
Show the progress of a run.

Without an argument the most recent run is shown. With --watch the command
polls the run's status file and streams step events until the run finishes,
which makes it usable from a second terminal while a run is in flight.
`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var requested string
			if len(args) > 0 {
				requested = strings.TrimSpace(args[0])
			}
			runID, err := resolveRunID(cfg, requested)
			if err != nil {
				return err
			}
			statusPath := report.StatusPath(report.RunDir(cfg.Paths.RunsDir, runID))

			state, err := readRunState(statusPath)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, state)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			if !watch {
				for _, line := range renderRunStatus(state, colorize) {
					fmt.Fprintln(out, line)
				}
				return nil
			}

			return watchRun(cmd, cfg, statusPath, colorize)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Stream step events until the run finishes")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the raw run state as JSON")
	return cmd
}

// resolveRunID maps an optional user-supplied run ID to a concrete one.
// Run directory names start with a UTC timestamp, so the lexically last
// directory holding a status file is the most recent run.
func resolveRunID(cfg *config.Config, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	entries, err := os.ReadDir(cfg.Paths.RunsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.New("no runs recorded yet; start one with `slate run`")
		}
		return "", fmt.Errorf("scan runs directory: %w", err)
	}
	var candidates []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		statusPath := report.StatusPath(filepath.Join(cfg.Paths.RunsDir, entry.Name()))
		if _, err := os.Stat(statusPath); err == nil {
			candidates = append(candidates, entry.Name())
		}
	}
	if len(candidates) == 0 {
		return "", errors.New("no runs recorded yet; start one with `slate run`")
	}
	sort.Strings(candidates)
	return candidates[len(candidates)-1], nil
}

func readRunState(statusPath string) (*runstate.RunState, error) {
	data, err := os.ReadFile(statusPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run status not found at %s", statusPath)
		}
		return nil, fmt.Errorf("read run status: %w", err)
	}
	file, err := runstate.DecodeStatusFile(data)
	if err != nil {
		return nil, err
	}
	if file.Run == nil {
		return nil, errors.New("run status file has no run record")
	}
	return file.Run, nil
}

func renderRunStatus(state *runstate.RunState, colorize bool) []string {
	lines := renderSectionHeader("Run Status", colorize)

	lines = append(lines, renderStatusLine("Run", statusInfo, state.RunID, colorize))
	lines = append(lines, renderStatusLine("Pipeline", statusInfo, state.PipelineID, colorize))
	lines = append(lines, renderStatusLine("Status", statusKindForRun(state.Status), string(state.Status), colorize))

	if state.CurrentStep != "" {
		progress := fmt.Sprintf("%s (%d/%d steps done)", state.CurrentStep, len(state.CompletedSteps), state.TotalSteps)
		lines = append(lines, renderStatusLine("Step", statusInfo, progress, colorize))
	} else if state.TotalSteps > 0 {
		progress := fmt.Sprintf("%d/%d steps done", len(state.CompletedSteps), state.TotalSteps)
		lines = append(lines, renderStatusLine("Progress", statusInfo, progress, colorize))
	}

	lines = append(lines, renderStatusLine("Started", statusInfo, state.StartedAt.Local().Format(time.RFC3339), colorize))
	if state.FinishedAt != nil {
		lines = append(lines, renderStatusLine("Finished", statusInfo, state.FinishedAt.Local().Format(time.RFC3339), colorize))
	}
	if state.DurationMS > 0 {
		lines = append(lines, renderStatusLine("Duration", statusInfo, (time.Duration(state.DurationMS)*time.Millisecond).Round(time.Second).String(), colorize))
	}
	if state.ErrorMessage != "" {
		lines = append(lines, renderStatusLine("Error", statusError, state.ErrorMessage, colorize))
	}
	for _, warning := range state.Warnings {
		lines = append(lines, renderStatusLine("Warning", statusWarn, warning, colorize))
	}
	return lines
}

func statusKindForRun(status runstate.Status) statusKind {
	switch status {
	case runstate.StatusSucceeded:
		return statusOK
	case runstate.StatusFailed:
		return statusError
	case runstate.StatusCancelled:
		return statusWarn
	default:
		return statusInfo
	}
}

// watchRun polls the status file, printing events as they land, until the
// run reaches a terminal status or the command context is cancelled.
func watchRun(cmd *cobra.Command, cfg *config.Config, statusPath string, colorize bool) error {
	out := cmd.OutOrStdout()
	interval := time.Duration(cfg.Runner.StatusPollInterval) * time.Second
	if interval <= 0 {
		interval = time.Second
	}

	printed := 0
	for {
		state, err := readRunState(statusPath)
		if err != nil {
			return err
		}
		for ; printed < len(state.Events); printed++ {
			fmt.Fprintln(out, formatRunEvent(state.Events[printed], colorize))
		}
		if state.Status.Terminal() {
			for _, line := range renderRunStatus(state, colorize) {
				fmt.Fprintln(out, line)
			}
			if state.Status != runstate.StatusSucceeded {
				return fmt.Errorf("run %s %s", state.RunID, state.Status)
			}
			return nil
		}
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(interval):
		}
	}
}

func formatRunEvent(event runstate.Event, colorize bool) string {
	kind := statusInfo
	switch event.Kind {
	case runstate.EventStepFailed, runstate.EventError:
		kind = statusError
	case runstate.EventWarning:
		kind = statusWarn
	case runstate.EventStepComplete:
		kind = statusOK
	}
	label := string(event.Kind)
	if event.Step != "" {
		label = fmt.Sprintf("%s %s", event.Kind, event.Step)
	}
	text := strings.TrimRight(fmt.Sprintf("%s  %-28s %s", event.Timestamp.Local().Format("15:04:05"), label, event.Message), " ")
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + text + ansiReset
		}
	}
	return text
}
