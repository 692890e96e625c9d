package snapshot

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"lpr-gate/internal/domain/entity"
	"lpr-gate/internal/domain/port"
)

// FileStore пишет снимки в локальный каталог
type FileStore struct {
	dir string
}

var _ port.SnapshotStore = (*FileStore)(nil)

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Save возвращает путь снимка относительно каталога хранилища
func (s *FileStore) Save(ctx context.Context, record entity.DetectionRecord, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := objectName(record)
	full := filepath.Join(s.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("snapshot dir: %w", err)
	}
	if err := imaging.Save(img, full, imaging.JPEGQuality(90)); err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	return name, nil
}

func (s *FileStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !filepath.IsLocal(filepath.FromSlash(ref)) {
		return fmt.Errorf("snapshot ref %q is outside the store", ref)
	}
	if err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(ref))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
