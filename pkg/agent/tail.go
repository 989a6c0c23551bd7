package agent

import (
	"bytes"
	"context"
	"io"
	"os"
	"time"
)

// readChunk bounds a single read while following a file.
const readChunk = 64 * 1024

// TailLines returns the last n lines of the file at path and the offset the
// returned content ends at. n <= 0 returns the whole file.
func TailLines(path string, n int) ([]byte, int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	return lastLines(data, n), int64(len(data)), nil
}

func lastLines(data []byte, n int) []byte {
	if n <= 0 || len(data) == 0 {
		return data
	}
	// A trailing newline terminates the last line rather than starting a new one.
	end := len(data)
	if data[end-1] == '\n' {
		end--
	}
	start := end
	for seen := 0; start > 0; start-- {
		if data[start-1] == '\n' {
			seen++
			if seen == n {
				break
			}
		}
	}
	return data[start:]
}

// Follow writes every byte appended to path after offset, polling at
// interval, until ctx ends or emit fails. A file that shrinks is treated
// as rotated and read again from the start.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, emit func([]byte) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	buf := make([]byte, readChunk)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		size := info.Size()
		if size < offset {
			offset = 0
		}
		if size == offset {
			continue
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			f.Close()
			return err
		}
		for offset < size {
			n, err := f.Read(buf)
			if n > 0 {
				offset += int64(n)
				if emitErr := emit(bytes.Clone(buf[:n])); emitErr != nil {
					f.Close()
					return emitErr
				}
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				f.Close()
				return err
			}
		}
		f.Close()
	}
}
