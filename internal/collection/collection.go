// Package collection loads the passage collection the pipeline indexes: one
// passage per line, addressed by a stable 1-indexed integer id (spec §3
// "Passage" entity, §6 collection_path option).
package collection

import (
	"bufio"
	"fmt"
	"os"
)

// Collection holds every passage text in memory, indexed by passage id.
// The source collections this pipeline targets (tens of millions of short
// passages) fit comfortably in memory; a streaming variant would be a
// reasonable follow-up for collections that don't.
type Collection struct {
	lines []string
}

// Load reads path as one passage per line. Line 1 becomes passage id 1.
func Load(path string) (*Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("collection: open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("collection: read %s: %w", path, err)
	}

	return &Collection{lines: lines}, nil
}

// NumDocs returns the number of passages loaded.
func (c *Collection) NumDocs() int {
	return len(c.lines)
}

// Text returns passage pid's text (1-indexed), satisfying the TextSource
// interfaces the sampler and chunk encoder depend on.
func (c *Collection) Text(pid int) (string, error) {
	if pid < 1 || pid > len(c.lines) {
		return "", fmt.Errorf("collection: passage id %d out of range [1,%d]", pid, len(c.lines))
	}
	return c.lines[pid-1], nil
}
