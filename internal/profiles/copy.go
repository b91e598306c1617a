package profiles

import (
	"io"
	"os"
	"path/filepath"
)

// copyDir recursively copies the tree at src to dst and returns the number of
// regular files written. File and directory permissions are preserved.
func copyDir(src, dst string) (int, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()); err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, err
	}

	files := 0
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			n, err := copyDir(srcPath, dstPath)
			files += n
			if err != nil {
				return files, err
			}
			continue
		}

		if err := copyFile(srcPath, dstPath); err != nil {
			return files, err
		}
		files++
	}

	return files, nil
}

// copyFile copies a single file from src to dst, keeping the source mode.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return err
	}
	if err := dstFile.Close(); err != nil {
		return err
	}

	// OpenFile honours the umask; apply the exact source permissions.
	return os.Chmod(dst, srcInfo.Mode().Perm())
}
