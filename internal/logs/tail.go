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

const (
	pollInterval = 200 * time.Millisecond
	maxLineBytes = 1024 * 1024
)

// Request selects what Tail returns. A negative Offset means "the last Lines
// lines"; otherwise every line after Offset is returned. Wait bounds how long
// Tail polls when nothing new is available.
type Request struct {
	Offset int64
	Lines  int
	Wait   time.Duration
}

// Chunk is one batch of lines and the offset to resume from.
type Chunk struct {
	Lines  []string
	Offset int64
}

// Tail reads path according to req. A missing file yields an empty chunk at
// offset zero.
func Tail(ctx context.Context, path string, req Request) (Chunk, error) {
	if req.Offset < 0 {
		lines, offset, err := lastLines(path, req.Lines)
		if err != nil || len(lines) > 0 || req.Wait <= 0 {
			return Chunk{Lines: lines, Offset: offset}, err
		}
		req.Offset = offset
	}

	deadline := time.Now().Add(req.Wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	offset := req.Offset
	for {
		lines, next, err := linesAfter(path, offset)
		if err != nil {
			return Chunk{Offset: offset}, err
		}
		if len(lines) > 0 || !time.Now().Before(deadline) {
			return Chunk{Lines: lines, Offset: next}, nil
		}
		offset = next
		select {
		case <-ctx.Done():
			return Chunk{Offset: offset}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func open(path string) (*os.File, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}
	return file, info.Size(), nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}

func lastLines(path string, limit int) ([]string, int64, error) {
	file, size, err := open(path)
	if file == nil || err != nil {
		return nil, 0, err
	}
	defer file.Close()

	if limit <= 0 {
		return nil, size, nil
	}

	ring := make([]string, 0, limit)
	start := 0
	scanner := newScanner(io.LimitReader(file, size))
	for scanner.Scan() {
		if len(ring) < limit {
			ring = append(ring, scanner.Text())
			continue
		}
		ring[start] = scanner.Text()
		start = (start + 1) % limit
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}
	return append(ring[start:], ring[:start]...), size, nil
}

func linesAfter(path string, offset int64) ([]string, int64, error) {
	file, size, err := open(path)
	if file == nil || err != nil {
		return nil, 0, err
	}
	defer file.Close()

	if offset > size {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}

	var lines []string
	consumed := offset
	reader := bufio.NewReaderSize(io.LimitReader(file, size-offset), 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			// A partial trailing line is left for the next call.
			break
		}
		if err != nil {
			return nil, offset, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		lines = append(lines, line[:len(line)-1])
	}
	return lines, consumed, nil
}
