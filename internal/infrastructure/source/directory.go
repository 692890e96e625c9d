// Package source источники кадров.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"lpr-gate/internal/domain/entity"
	"lpr-gate/internal/domain/port"
)

// DirectoryOptions настройки источника
type DirectoryOptions struct {
	Follow   bool          // ждать новые файлы после существующих
	Debounce time.Duration // файл считается дописанным, если не менялся столько времени
}

// DirectorySource отдаёт изображения из каталога: сначала существующие,
// затем (Follow) новые по мере появления. Внутри каждой пачки порядок по времени
// изменения файла (оно же CapturedAt), при равенстве по имени.
type DirectorySource struct {
	dir     string
	backlog []string
	files   chan string
	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
	log     logrus.FieldLogger
}

var _ port.FrameSource = (*DirectorySource)(nil)

func NewDirectorySource(dir string, opts DirectoryOptions, log logrus.FieldLogger) (*DirectorySource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame dir: %w", err)
	}

	s := &DirectorySource{
		dir:  dir,
		done: make(chan struct{}),
		log:  log,
	}
	for _, e := range entries {
		if !e.IsDir() && isSupportedExt(e.Name()) {
			s.backlog = append(s.backlog, e.Name())
		}
	}
	s.backlog = byCaptureTime(dir, s.backlog)

	if !opts.Follow {
		return s, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}

	s.watcher = w
	s.files = make(chan string, 256)
	go s.watch(opts.Debounce)

	log.WithField("dir", dir).Info("watching frame directory")
	return s, nil
}

// watch ждёт, пока файл перестанет меняться, и только тогда отдаёт его
func (s *DirectorySource) watch(debounce time.Duration) {
	defer close(s.files)

	pending := map[string]time.Time{}
	ticker := time.NewTicker(debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !isSupportedExt(name) {
				continue
			}
			pending[name] = time.Now()
		case <-ticker.C:
			now := time.Now()
			var ready []string
			for name, t := range pending {
				if now.Sub(t) > debounce {
					ready = append(ready, name)
					delete(pending, name)
				}
			}
			ready = byCaptureTime(s.dir, ready)
			for _, name := range ready {
				select {
				case s.files <- name:
				case <-s.done:
					return
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.WithError(err).Warn("watch error")
		}
	}
}

// Next возвращает следующий кадр; io.EOF, когда файлов больше не будет
func (s *DirectorySource) Next(ctx context.Context) (entity.Frame, error) {
	if len(s.backlog) > 0 {
		name := s.backlog[0]
		s.backlog = s.backlog[1:]
		return s.load(name)
	}

	if s.files == nil {
		return entity.Frame{}, io.EOF
	}

	select {
	case <-ctx.Done():
		return entity.Frame{}, ctx.Err()
	case name, ok := <-s.files:
		if !ok {
			return entity.Frame{}, io.EOF
		}
		return s.load(name)
	}
}

func (s *DirectorySource) load(name string) (entity.Frame, error) {
	path := filepath.Join(s.dir, name)

	info, err := os.Stat(path)
	if err != nil {
		return entity.Frame{}, fmt.Errorf("stat %s: %w", name, err)
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return entity.Frame{}, fmt.Errorf("open %s: %w", name, err)
	}

	return entity.Frame{
		Image:      img,
		CapturedAt: info.ModTime(),
		Source:     name,
	}, nil
}

func (s *DirectorySource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if s.watcher != nil {
			err = s.watcher.Close()
		}
	})
	return err
}

// byCaptureTime сортирует имена по mtime, затем по имени.
// Файл, который не удалось прочитать, идёт первым: Next вернёт по нему ошибку.
func byCaptureTime(dir string, names []string) []string {
	mod := make(map[string]time.Time, len(names))
	for _, name := range names {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil {
			mod[name] = info.ModTime()
		}
	}

	sort.Slice(names, func(i, j int) bool {
		a, b := mod[names[i]], mod[names[j]]
		if !a.Equal(b) {
			return a.Before(b)
		}
		return names[i] < names[j]
	})
	return names
}

func isSupportedExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".gif", ".tif", ".tiff":
		return true
	}
	return false
}
