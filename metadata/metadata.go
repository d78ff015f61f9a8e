// Package metadata keeps a small yaml document on disk with a .bak copy of the previous
// version to fall back on.
package metadata

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tilegate/gethook/log"
	"gopkg.in/yaml.v3"
)

type File[T any] struct {
	path   string
	locker sync.Mutex
	data   T

	// primaryBroken is set when Open fell back to the backup; the next Write keeps the backup.
	primaryBroken bool
}

// BackupPath is <dir>/<name without extension>.bak.
func BackupPath(path string) string {
	base := filepath.Base(path)
	return filepath.Join(filepath.Dir(path), strings.TrimSuffix(base, filepath.Ext(base))+".bak")
}

func read[T any](path string) (T, error) {
	var data T
	raw, err := os.ReadFile(path)
	if err != nil {
		return data, err
	}
	if err = yaml.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("decode %s: %w", path, err)
	}
	return data, nil
}

// Open reads path. When the file cannot be read or decoded the backup is used instead;
// when it does not exist init provides the content and the file is written.
func Open[T any](path string, init func() T) (*File[T], error) {
	f := &File[T]{path: path}

	data, err := read[T](path)
	switch {
	case err == nil:
		f.data = data
	case errors.Is(err, fs.ErrNotExist):
		if init != nil {
			f.data = init()
		}
		if err = f.Write(); err != nil {
			return nil, err
		}
		log.Info("metadata file created", log.String("path", path))
	default:
		log.Error("read metadata file fail", log.String("path", path), log.ErrorAttr("err", err))
		backup, bakErr := read[T](BackupPath(path))
		if bakErr != nil {
			return nil, fmt.Errorf("read metadata %s: %w (backup: %v)", path, err, bakErr)
		}
		f.data = backup
		f.primaryBroken = true
		log.Info("read metadata backup file", log.String("path", BackupPath(path)))
	}

	return f, nil
}

func (f *File[T]) Get() T {
	f.locker.Lock()
	defer f.locker.Unlock()
	return f.data
}

// Update changes the document and writes it.
func (f *File[T]) Update(fn func(data *T)) error {
	f.locker.Lock()
	fn(&f.data)
	f.locker.Unlock()

	return f.Write()
}

// Write copies the current file to the backup path, then replaces it. A primary that failed
// to load is not copied over the backup.
func (f *File[T]) Write() error {
	f.locker.Lock()
	defer f.locker.Unlock()

	raw, err := yaml.Marshal(&f.data)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	if !f.primaryBroken {
		if err = copyFile(f.path, BackupPath(f.path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("backup metadata: %w", err)
		}
	}

	if dir := filepath.Dir(f.path); dir != "" {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := f.path + ".tmp"
	if err = os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if err = os.Rename(tmp, f.path); err != nil {
		return err
	}
	f.primaryBroken = false
	return nil
}

func (f *File[T]) String() string {
	return filepath.Base(f.path)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
