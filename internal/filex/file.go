package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// image extensions the backend accepts for avatars and cover images
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// CheckImageFile verifies that path names a readable regular file with an
// image extension and returns its size. Callers use it to fail fast before
// starting a multipart upload.
func CheckImageFile(path string) (int64, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !imageExts[ext] {
		return 0, fmt.Errorf("%s: unsupported image type %q", path, ext)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if fi.IsDir() {
		return 0, fmt.Errorf("%s: is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	f.Close()

	return fi.Size(), nil
}
