package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileCrontab is the default Crontab: a single flat file of shell
// commands, one per line, rewritten wholesale on every mutation via the
// same write-to-temp-then-rename discipline as the store's snapshots and
// chrono.FileStorage.
type FileCrontab struct {
	mu   sync.Mutex
	path string
}

// NewFileCrontab returns a FileCrontab backed by path. The file and its
// parent directory are created if they don't exist.
func NewFileCrontab(path string) (*FileCrontab, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("processor: creating crontab directory: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, nil, 0644); err != nil {
			return nil, fmt.Errorf("processor: creating crontab file: %w", err)
		}
	}
	return &FileCrontab{path: path}, nil
}

func (c *FileCrontab) readLines() ([]string, error) {
	b, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var lines []string
	for _, l := range strings.Split(string(b), "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

func (c *FileCrontab) writeLines(lines []string) error {
	tmp := c.path + ".tmp"
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, c.path)
}

// Append adds command if not already present, and rewrites the file.
func (c *FileCrontab) Append(command string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines, err := c.readLines()
	if err != nil {
		return fmt.Errorf("processor: reading local crontab: %w", err)
	}
	for _, l := range lines {
		if l == command {
			return nil
		}
	}
	lines = append(lines, command)
	return c.writeLines(lines)
}

// Remove deletes command from the file and rewrites it.
func (c *FileCrontab) Remove(command string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines, err := c.readLines()
	if err != nil {
		return fmt.Errorf("processor: reading local crontab: %w", err)
	}
	out := lines[:0]
	for _, l := range lines {
		if l != command {
			out = append(out, l)
		}
	}
	return c.writeLines(out)
}

// Purge empties the file.
func (c *FileCrontab) Purge() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLines(nil)
}
