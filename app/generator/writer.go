package generator

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// atomicWriteFile writes data next to filename and renames it into place,
// so readers never see a partially written page.
func atomicWriteFile(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(filename)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	closed := false
	defer func() {
		if !closed {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	closed = true

	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, filename); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return nil
}

// PostPath is the site path of a post page.
func PostPath(uid string) string {
	return "/post/" + uid
}

// filePath maps a site path to the index.html that serves it.
func (b *Builder) filePath(sitePath string) string {
	return filepath.Join(b.outputDir, filepath.FromSlash(strings.TrimPrefix(sitePath, "/")), "index.html")
}

// PostFile returns the generated file of a post, or "" when the UID cannot be a file name.
func (b *Builder) PostFile(uid string) string {
	if !validUID(uid) {
		return ""
	}
	return b.filePath(PostPath(uid))
}

func (b *Builder) writeFile(name string, data []byte) error {
	if err := atomicWriteFile(filepath.Join(b.outputDir, name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func (b *Builder) writePage(sitePath string, data []byte) error {
	if err := atomicWriteFile(b.filePath(sitePath), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", sitePath, err)
	}
	return nil
}

func (b *Builder) copyAssets(assets fs.FS) error {
	return fs.WalkDir(assets, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(assets, path)
		if err != nil {
			return err
		}
		return b.writeFile(path, data)
	})
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func validUID(uid string) bool {
	return uid != "" && uid != "." && uid != ".." && !strings.ContainsAny(uid, `/\`) && filepath.IsLocal(uid)
}

func listPostDirs(outputDir string) []string {
	entries, err := os.ReadDir(filepath.Join(outputDir, "post"))
	if err != nil {
		return nil
	}

	uids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			uids = append(uids, entry.Name())
		}
	}
	return uids
}

func removePostDir(outputDir, uid string) error {
	if !validUID(uid) {
		return fmt.Errorf("invalid uid %q", uid)
	}
	return os.RemoveAll(filepath.Join(outputDir, "post", uid))
}
