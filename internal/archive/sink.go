package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	appLog "area710/internal/log"
)

// Sink receives finished archives.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	// Put stores data under name and returns where it ended up. root is the
	// project the archive was taken from.
	Put(ctx context.Context, root, name string, data []byte) (string, error)
}

// DirSink writes archives into a local directory and keeps the newest Keep
// of them. A relative Dir is resolved against the project root.
type DirSink struct {
	Dir  string
	Keep int
}

func (d DirSink) Name() string { return "dir" }

func (d DirSink) Put(ctx context.Context, root, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := d.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("archive: create %s: %w", dir, err)
	}

	dst := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, ".archive-*.tmp")
	if err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("archive: write %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("archive: write %s: %w", dst, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return "", fmt.Errorf("archive: write %s: %w", dst, err)
	}

	d.prune(dir)
	return dst, nil
}

// prune removes the oldest archives beyond Keep. Archive names sort by
// timestamp, so lexical order is age order.
func (d DirSink) prune(dir string) {
	if d.Keep <= 0 {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		appLog.Warn("archive: list for pruning failed", "dir", dir, "err", err)
		return
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.Type().IsRegular() && strings.HasPrefix(n, namePrefix) && strings.HasSuffix(n, nameSuffix) {
			names = append(names, n)
		}
	}
	slices.Sort(names)
	for len(names) > d.Keep {
		old := filepath.Join(dir, names[0])
		if err := os.Remove(old); err != nil {
			appLog.Warn("archive: prune failed", "path", old, "err", err)
		} else {
			appLog.Debug("archive: pruned", "path", old)
		}
		names = names[1:]
	}
}
