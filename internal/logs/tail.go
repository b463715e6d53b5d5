package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Poll cadence for follow mode. Transcripts are append-only files, so
// polling is enough and avoids platform watcher plumbing.
const pollInterval = 250 * time.Millisecond

const (
	scanBuffer  = 64 * 1024
	maxLineSize = 1 << 20
)

// TailOptions controls one Tail call. A negative Offset starts from the
// last Limit lines; Follow with a positive Wait keeps polling for new
// lines until the wait expires or the context ends.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads log lines from path. A missing file is not an error: runs
// create their transcripts lazily, so callers poll until it appears.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	result := TailResult{Offset: opts.Offset}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		result.Offset = 0
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("stat log: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("log path %s is a directory", path)
	}
	if opts.Wait < 0 {
		opts.Wait = 0
	}

	var lines []string
	var end int64
	if opts.Offset < 0 {
		lines, end, err = lastLines(path, opts.Limit)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			offset = info.Size()
		}
		lines, end, err = linesFrom(path, offset)
	}
	if err != nil {
		return result, err
	}
	result.Lines = lines
	result.Offset = end

	if opts.Follow && opts.Wait > 0 && len(result.Lines) == 0 {
		return awaitLines(ctx, path, result.Offset, opts.Wait)
	}
	return result, nil
}

// lastLines scans the file keeping only the trailing window of limit
// lines, and reports the end-of-file offset to resume from.
func lastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log: %w", err)
		}
		return nil, end, nil
	}

	window := make([]string, limit)
	count, next := 0, 0
	scanner := newLineScanner(file)
	for scanner.Scan() {
		window[next] = scanner.Text()
		next = (next + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log: %w", err)
	}
	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log: %w", err)
	}

	lines := make([]string, 0, count)
	if count == limit {
		// next points at the oldest entry once the window has wrapped.
		lines = append(lines, window[next:]...)
		lines = append(lines, window[:next]...)
	} else {
		lines = append(lines, window[:count]...)
	}
	return lines, end, nil
}

// linesFrom reads every line between offset and the current end of
// file.
func linesFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log: %w", err)
	}
	var lines []string
	scanner := newLineScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log: %w", err)
	}
	end, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log: %w", err)
	}
	return lines, end, nil
}

// awaitLines polls for lines appearing after offset until the wait
// expires. Returning on an empty poll is fine; the caller loops with
// the updated offset.
func awaitLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	result := TailResult{Offset: offset}
	deadline := time.Now().Add(wait)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		lines, end, err := linesFrom(path, offset)
		if err != nil {
			return result, err
		}
		result.Offset = end
		if len(lines) > 0 {
			result.Lines = lines
			return result, nil
		}
		if !time.Now().Before(deadline) {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}

func newLineScanner(file *os.File) *bufio.Scanner {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, scanBuffer), maxLineSize)
	return scanner
}
