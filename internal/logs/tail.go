package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Options controls a Tail call.
type Options struct {
	// Lines is how many trailing matching lines to emit first; <= 0 emits all.
	Lines  int
	Follow bool
	Poll   time.Duration
	Filter Filter
}

// Filter selects log lines. Empty fields match everything.
type Filter struct {
	RunID    string
	JobID    string
	MinLevel string
}

var levelRank = map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3}

// Match reports whether line passes every configured predicate.
func (f Filter) Match(line string) bool {
	if f.RunID != "" && !hasField(line, "run_id", f.RunID) {
		return false
	}
	if f.JobID != "" && !hasField(line, "job_id", f.JobID) {
		return false
	}
	if f.MinLevel != "" {
		min, ok := levelRank[strings.ToUpper(f.MinLevel)]
		if ok && lineLevel(line) < min {
			return false
		}
	}
	return true
}

func hasField(line, key, value string) bool {
	return strings.Contains(line, key+"="+value) ||
		strings.Contains(line, `"`+key+`":"`+value+`"`)
}

// lineLevel finds the level token in console ("<ts> WARN msg") or JSON
// ("level":"WARN") lines. Unknown lines rank as INFO.
func lineLevel(line string) int {
	if i := strings.Index(line, `"level":"`); i >= 0 {
		rest := line[i+len(`"level":"`):]
		if j := strings.IndexByte(rest, '"'); j > 0 {
			if rank, ok := levelRank[strings.ToUpper(rest[:j])]; ok {
				return rank
			}
		}
	}
	fields := strings.Fields(line)
	if len(fields) > 1 {
		if rank, ok := levelRank[fields[1]]; ok {
			return rank
		}
	}
	return levelRank["INFO"]
}

// Tail emits matching lines from path. With Follow it keeps polling until
// ctx is done and returns nil on cancellation. A missing file is waited for
// when following and is otherwise not an error.
func Tail(ctx context.Context, path string, opts Options, emit func(string)) error {
	if opts.Poll <= 0 {
		opts.Poll = 250 * time.Millisecond
	}

	offset, err := emitLast(path, opts, emit)
	if err != nil {
		return err
	}
	if !opts.Follow {
		return nil
	}

	ticker := time.NewTicker(opts.Poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		offset, err = emitFrom(path, offset, opts.Filter, emit)
		if err != nil {
			return err
		}
	}
}

func emitLast(path string, opts Options, emit func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("log path %q is a directory", path)
	}

	var ring []string
	scanner := newScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !opts.Filter.Match(line) {
			continue
		}
		ring = append(ring, line)
		if opts.Lines > 0 && len(ring) > opts.Lines {
			ring = ring[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read log file: %w", err)
	}
	for _, line := range ring {
		emit(line)
	}

	offset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("determine log offset: %w", err)
	}
	return offset, nil
}

// emitFrom reads complete lines written after offset. A truncated file
// restarts from the beginning.
func emitFrom(path string, offset int64, filter Filter, emit func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if info.Size() == offset {
		return offset, nil
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// Partial trailing line; pick it up on the next poll.
			return offset, nil
		}
		offset += int64(len(line))
		line = strings.TrimRight(line, "\r\n")
		if filter.Match(line) {
			emit(line)
		}
	}
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}
