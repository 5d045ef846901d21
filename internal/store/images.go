package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const imagesSubdir = "tickets"

// DiskImages writes listing images under <root>/tickets and serves them as
// /uploads/tickets/<name>.
type DiskImages struct {
	root      string
	urlPrefix string
}

func NewDiskImages(root string) *DiskImages {
	return &DiskImages{root: root, urlPrefix: "/uploads"}
}

func (s *DiskImages) Dir() string {
	return filepath.Join(s.root, imagesSubdir)
}

func (s *DiskImages) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid image name %q", name)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := s.Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, ".incoming-*"+filepath.Ext(name))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := io.Copy(tempFile, r); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("close image: %w", err)
	}

	finalPath := filepath.Join(dir, name)
	if err := os.Rename(tempPath, finalPath); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("store image: %w", err)
	}
	if err := os.Chmod(finalPath, 0o644); err != nil {
		_ = os.Remove(finalPath)
		return "", fmt.Errorf("chmod image: %w", err)
	}

	return path.Join(s.urlPrefix, imagesSubdir, name), nil
}

// Remove deletes an image by the reference Save returned. References outside
// the upload area are ignored.
func (s *DiskImages) Remove(ref string) error {
	prefix := path.Join(s.urlPrefix, imagesSubdir) + "/"
	if !strings.HasPrefix(ref, prefix) {
		return nil
	}

	name := strings.TrimPrefix(ref, prefix)
	if name == "" || name != filepath.Base(name) {
		return nil
	}

	err := os.Remove(filepath.Join(s.Dir(), name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}
