// Package archive packs a project into a zip file and ships it to a sink,
// either on demand or on a cron schedule.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"area710/internal/project"
)

const (
	namePrefix = "area710_backup_"
	nameSuffix = ".zip"
)

// FileName is the archive name for a backup taken at now.
func FileName(now time.Time) string {
	return namePrefix + now.Format("20060102_150405") + nameSuffix
}

// Export zips both collection files and the two image trees of p. Entry
// names are relative to the project root and use "/". Pieces that do not
// exist are left out, so an empty project yields an empty archive.
func Export(p project.Project) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, path := range []string{p.EventsPath(), p.GalleryPath()} {
		if err := addFile(zw, p.Root, path); err != nil {
			return nil, err
		}
	}
	for _, dir := range []string{p.ImageDir(), p.GalleryImageDir()} {
		if err := addTree(zw, p.Root, dir); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("archive: close zip: %w", err)
	}
	return buf.Bytes(), nil
}

func addTree(zw *zip.Writer, root, dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return addFile(zw, root, path)
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func addFile(zw *zip.Writer, root, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("archive: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("archive: stat %s: %w", path, err)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("archive: header %s: %w", path, err)
	}
	hdr.Name = filepath.ToSlash(rel)
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("archive: add %s: %w", hdr.Name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("archive: write %s: %w", hdr.Name, err)
	}
	return nil
}
