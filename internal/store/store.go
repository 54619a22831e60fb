// Package store reads and writes a project's JSON collection files.
//
// Save copies the previous file content to "<path>.backup" before replacing
// it. Load distinguishes a missing file from an unreadable one; LoadOrEmpty
// provides the fail-soft behavior the editor uses when displaying data.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"

	appLog "area710/internal/log"
)

// BackupSuffix is appended to a collection path to form its backup path.
const BackupSuffix = ".backup"

const filePerm = 0o644

// ErrNotExist is returned by Load when the collection file is absent.
var ErrNotExist = fs.ErrNotExist

// DecodeError reports a collection file that exists but cannot be parsed.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Outcome tells how LoadOrEmpty obtained its result.
type Outcome int

const (
	OutcomeLoaded Outcome = iota
	OutcomeMissing
	OutcomeCorrupt
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoaded:
		return "loaded"
	case OutcomeMissing:
		return "missing"
	case OutcomeCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// Result is returned by LoadOrEmpty.
type Result struct {
	Outcome Outcome
	Err     error
}

// Load decodes the JSON file at path into v.
//
// A missing file yields an error matching ErrNotExist and leaves v untouched.
// Read failures and malformed JSON yield a *DecodeError.
func Load(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return &DecodeError{Path: path, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &DecodeError{Path: path, Err: err}
	}
	return nil
}

// LoadOrEmpty is Load with the editor's fail-soft contract: a missing or
// unreadable file leaves v as its zero value and the error is logged rather
// than returned. Result tells the caller which case applied.
func LoadOrEmpty(path string, v any) Result {
	err := Load(path, v)
	if err != nil {
		// Type errors can leave v half-filled.
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && !rv.IsNil() {
			rv.Elem().SetZero()
		}
	}
	switch {
	case err == nil:
		return Result{Outcome: OutcomeLoaded}
	case errors.Is(err, fs.ErrNotExist):
		appLog.Debug("collection file missing; using empty collection", "path", path)
		return Result{Outcome: OutcomeMissing, Err: err}
	default:
		appLog.Error("collection file unreadable; using empty collection", err, "path", path)
		return Result{Outcome: OutcomeCorrupt, Err: err}
	}
}

// Save serializes v and replaces the file at path.
//
// When path already exists its current bytes are first copied to
// path+BackupSuffix, overwriting any older backup. If that copy fails the
// target is left untouched. The new content is written to a temp file in the
// same directory and renamed over the target.
func Save(path string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if err := backup(path); err != nil {
		return err
	}

	if err := writeFile(path, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Marshal produces the on-disk form: 4-space indented UTF-8 JSON with
// non-ASCII and HTML characters written literally and no trailing newline.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func backup(path string) error {
	prev, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s for backup: %w", path, err)
	}
	if err := os.WriteFile(path+BackupSuffix, prev, filePerm); err != nil {
		return fmt.Errorf("write backup %s: %w", path+BackupSuffix, err)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
