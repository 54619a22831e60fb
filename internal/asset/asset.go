// Package asset stores uploaded images inside a project directory and
// resolves project-relative paths for serving.
package asset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	appLog "area710/internal/log"
)

// Project subfolders receiving uploads.
const (
	EventImageDir   = "img"
	GalleryImageDir = "gallery-images"
)

var (
	// ErrEmptyName is returned when nothing usable is left of a filename.
	ErrEmptyName = errors.New("asset: empty file name after sanitizing")
	// ErrOutsideRoot is returned for paths escaping the project directory.
	ErrOutsideRoot = errors.New("asset: path escapes project root")
)

// Upload is an uploaded file as received from a client.
type Upload struct {
	Filename string
	Body     io.Reader
}

// Store writes up under destFolder (relative to projectRoot, created when
// absent) and returns the written file's path relative to projectRoot with
// "/" separators. An existing file of the same name is replaced.
//
// Failures are logged and returned; callers treat them as "no image set".
func Store(up Upload, destFolder, projectRoot string) (string, error) {
	rel, err := store(up, destFolder, projectRoot)
	if err != nil {
		appLog.Error("asset store failed", err, "file", up.Filename, "folder", destFolder)
		return "", err
	}
	appLog.Info("asset stored", "path", rel)
	return rel, nil
}

func store(up Upload, destFolder, projectRoot string) (string, error) {
	if up.Body == nil {
		return "", errors.New("asset: upload has no body")
	}
	name := SanitizeFilename(up.Filename)
	if name == "" {
		return "", ErrEmptyName
	}

	dir, err := Resolve(projectRoot, destFolder)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", destFolder, err)
	}

	dest := filepath.Join(dir, name)
	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, up.Body); err != nil {
		f.Close()
		_ = os.Remove(dest)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	rel, err := filepath.Rel(projectRoot, dest)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// eszett has no decomposition and would otherwise be dropped.
var eszett = strings.NewReplacer("ß", "ss", "ẞ", "SS")

// SanitizeFilename reduces a client-supplied name to a safe base name:
// directory parts are dropped, accents are folded to ASCII, whitespace becomes
// "_", and only letters, digits, '.', '_' and '-' survive. Leading and
// trailing dots and underscores are trimmed so the result is never a hidden
// file or a traversal component.
func SanitizeFilename(name string) string {
	// Both separator styles count, whatever the host OS.
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	for _, r := range norm.NFKD.String(eszett.Replace(name)) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}

	out := strings.Trim(b.String(), "._")
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", ".")
	}
	return out
}

// Resolve maps a project-relative path to an absolute path, rejecting
// absolute inputs and anything that would leave projectRoot.
func Resolve(projectRoot, rel string) (string, error) {
	if projectRoot == "" {
		return "", errors.New("asset: project root is empty")
	}
	rel = filepath.FromSlash(strings.ReplaceAll(rel, "\\", "/"))
	if filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", ErrOutsideRoot
	}
	root := filepath.Clean(projectRoot)
	full := filepath.Join(root, rel)
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return full, nil
}
