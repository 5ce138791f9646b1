package publish

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// skipDirs are never archived.
var skipDirs = map[string]bool{".git": true}

// Zip writes every regular file under dir into a zip archive at dest and
// returns the number of files written. dest itself is skipped when it lies
// inside dir.
func Zip(fs afero.Fs, dir, dest string) (int, error) {
	out, err := fs.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}

	zw := zip.NewWriter(out)
	absDest := filepath.Clean(dest)
	files := 0

	walkErr := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != dir && skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Clean(path) == absDest || !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		if err := addFile(fs, zw, path, filepath.ToSlash(rel), info); err != nil {
			return err
		}
		files++
		return nil
	})

	if err := zw.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if err := out.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if walkErr != nil {
		_ = fs.Remove(dest)
		return 0, fmt.Errorf("zip %s: %w", dir, walkErr)
	}
	return files, nil
}

func addFile(fs afero.Fs, zw *zip.Writer, path, name string, info os.FileInfo) error {
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}

	f, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
