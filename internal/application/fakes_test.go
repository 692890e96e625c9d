package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"sync"
	"time"

	"lpr-gate/internal/domain/entity"
	"lpr-gate/internal/infrastructure/vision"
	"lpr-gate/pkg/log"
)

var testLog = log.Discard()

var errStoreDown = errors.New("connection refused")

func testFrame(w, h int, at time.Time) entity.Frame {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 40, A: 255})
		}
	}
	return entity.Frame{Image: img, CapturedAt: at, Source: "test"}
}

// spyVision настоящий Native, но Locate управляется тестом
type spyVision struct {
	inner *vision.Native

	mu           sync.Mutex
	quad         *entity.Quad
	rectifyCalls int
	filterInputs []image.Rectangle
}

func newSpyVision(quad *entity.Quad) *spyVision {
	return &spyVision{inner: vision.NewNative(), quad: quad}
}

func (s *spyVision) Extract(frame image.Image, box entity.BoundingBox, margin int) (image.Image, image.Point, error) {
	return s.inner.Extract(frame, box, margin)
}

func (s *spyVision) Locate(crop image.Image) (entity.Quad, bool) {
	if s.quad == nil {
		return entity.Quad{}, false
	}
	return *s.quad, true
}

func (s *spyVision) Rectify(src image.Image, quad entity.Quad) (image.Image, error) {
	s.mu.Lock()
	s.rectifyCalls++
	s.mu.Unlock()
	return s.inner.Rectify(src, quad)
}

func (s *spyVision) Filter(img image.Image) (*image.Gray, error) {
	s.mu.Lock()
	s.filterInputs = append(s.filterInputs, img.Bounds())
	s.mu.Unlock()
	return s.inner.Filter(img)
}

type fakeRecognizer struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (f *fakeRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.text, f.err
}

// brokenHistory недоступное хранилище
type brokenHistory struct {
	inserts int
}

func (b *brokenHistory) Exists(ctx context.Context, plate string, from, to time.Time) (bool, error) {
	return false, errStoreDown
}

func (b *brokenHistory) Insert(ctx context.Context, record entity.DetectionRecord) error {
	b.inserts++
	return errStoreDown
}

func (b *brokenHistory) Recent(ctx context.Context, limit int) ([]entity.DetectionRecord, error) {
	return nil, errStoreDown
}

// readOnlyHistory отвечает на Exists, но не принимает записи
type readOnlyHistory struct{}

func (readOnlyHistory) Exists(ctx context.Context, plate string, from, to time.Time) (bool, error) {
	return false, nil
}

func (readOnlyHistory) Insert(ctx context.Context, record entity.DetectionRecord) error {
	return errStoreDown
}

func (readOnlyHistory) Recent(ctx context.Context, limit int) ([]entity.DetectionRecord, error) {
	return nil, nil
}

type fakeSnapshots struct {
	mu      sync.Mutex
	saved   []string
	deleted []string
}

func (f *fakeSnapshots) Save(ctx context.Context, record entity.DetectionRecord, img image.Image) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := "snap/" + record.ID + ".jpg"
	f.saved = append(f.saved, ref)
	return ref, nil
}

func (f *fakeSnapshots) Delete(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref)
	return nil
}

type fakeDetector struct {
	detections []entity.Detection
	err        error
	calls      int
}

func (f *fakeDetector) Detect(ctx context.Context, frame image.Image) ([]entity.Detection, error) {
	f.calls++
	return f.detections, f.err
}

type sliceSource struct {
	frames []entity.Frame
	reads  int
}

func (s *sliceSource) Next(ctx context.Context) (entity.Frame, error) {
	if s.reads >= len(s.frames) {
		return entity.Frame{}, io.EOF
	}
	f := s.frames[s.reads]
	s.reads++
	return f, nil
}

func (s *sliceSource) Close() error { return nil }

type recordingNotifier struct {
	records  []entity.DetectionRecord
	onNotify func()
}

func (n *recordingNotifier) NotifyAdmitted(ctx context.Context, record entity.DetectionRecord, annotated image.Image) error {
	n.records = append(n.records, record)
	if n.onNotify != nil {
		n.onNotify()
	}
	return nil
}
