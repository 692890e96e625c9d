package app

import (
	"context"
	"errors"
	"image"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"lpr-gate/internal/domain/entity"
	"lpr-gate/internal/domain/plate"
	"lpr-gate/internal/domain/port"
)

// Pipeline обрабатывает рамки детектора в фиксированном порядке:
// вырезка, углы, выпрямление, фильтр, OCR, нормализация, грамматика, дедупликация.
type Pipeline struct {
	vision     port.PlateVision
	recognizer port.TextRecognizer
	validator  *plate.Validator
	gate       *DedupGate
	snapshots  port.SnapshotStore

	margin  int
	workers int
	now     func() time.Time
	log     logrus.FieldLogger
}

// PipelineOption необязательная настройка конвейера
type PipelineOption func(*Pipeline)

// WithMargin отступ вокруг рамки в пикселях
func WithMargin(px int) PipelineOption {
	return func(p *Pipeline) { p.margin = px }
}

// WithSnapshots сохраняет вырезку принятого номера и пишет ссылку в запись
func WithSnapshots(store port.SnapshotStore) PipelineOption {
	return func(p *Pipeline) { p.snapshots = store }
}

// WithClock подменяет часы для кадров без времени захвата
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// WithWorkers сколько рамок одного кадра обрабатывать параллельно
func WithWorkers(n int) PipelineOption {
	return func(p *Pipeline) { p.workers = n }
}

func NewPipeline(
	vision port.PlateVision,
	recognizer port.TextRecognizer,
	validator *plate.Validator,
	gate *DedupGate,
	log logrus.FieldLogger,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		vision:     vision,
		recognizer: recognizer,
		validator:  validator,
		gate:       gate,
		margin:     5,
		workers:    1,
		now:        time.Now,
		log:        log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessRegion обрабатывает одну рамку. Никогда не паникует и не возвращает ошибку:
// любой исход выражается через entity.Outcome.
func (p *Pipeline) ProcessRegion(ctx context.Context, frame entity.Frame, box entity.BoundingBox) entity.Outcome {
	log := p.log.WithFields(logrus.Fields{
		"source": frame.Source,
		"box":    box,
	})

	crop, offset, err := p.vision.Extract(frame.Image, box, p.margin)
	if err != nil {
		log.WithError(err).Debug("region skipped")
		return entity.Skipped(entity.ReasonFor(err))
	}

	candidate := p.prepare(frame.Image, crop, offset, log)

	gray, err := p.vision.Filter(candidate)
	if err != nil {
		log.WithError(err).Debug("filter failed")
		return entity.Skipped(entity.ReasonFor(err))
	}

	raw, err := p.recognizer.Recognize(ctx, gray)
	if err != nil && !errors.Is(err, entity.ErrNoText) {
		log.WithError(err).Warn("recognizer failed")
	}
	text := plate.Normalize(plate.Clean(raw))
	if err != nil || text == "" {
		return entity.Skipped(entity.ReasonNoText)
	}

	if !p.validator.Valid(text) {
		log.WithFields(logrus.Fields{"raw": strings.TrimSpace(raw), "plate": text}).Debug("invalid plate format")
		return entity.Rejected(text, entity.ReasonInvalidFormat)
	}

	ts := frame.CapturedAt
	if ts.IsZero() {
		ts = p.now()
	}

	record, decision := p.gate.AdmitPrepared(ctx, entity.NewDetectionRecord(text, ts), func(r entity.DetectionRecord) entity.DetectionRecord {
		return p.snapshot(ctx, r, crop, log)
	})

	switch decision {
	case DecisionAdmit:
		log.WithFields(logrus.Fields{"plate": text, "id": record.ID}).Info("plate admitted")
		return entity.Admitted(record)
	case DecisionDuplicate:
		log.WithField("plate", text).Debug("duplicate plate")
		return entity.Rejected(text, entity.ReasonDuplicate)
	default:
		p.dropSnapshot(ctx, record, log)
		return entity.Rejected(text, entity.ReasonStoreUnavailable)
	}
}

// prepare выпрямляет номер, если удалось найти углы; иначе возвращает вырезку как есть
func (p *Pipeline) prepare(frame, crop image.Image, offset image.Point, log logrus.FieldLogger) image.Image {
	quad, ok := p.vision.Locate(crop)
	if !ok {
		log.Debug("corners not found, using crop")
		return crop
	}

	rectified, err := p.vision.Rectify(frame, quad.Translate(offset))
	if err != nil {
		log.WithError(err).Debug("rectify failed, using crop")
		return crop
	}
	return rectified
}

func (p *Pipeline) snapshot(ctx context.Context, record entity.DetectionRecord, img image.Image, log logrus.FieldLogger) entity.DetectionRecord {
	if p.snapshots == nil {
		return record
	}

	ref, err := p.snapshots.Save(ctx, record, img)
	if err != nil {
		log.WithError(err).Warn("failed to save snapshot")
		return record
	}
	return record.WithImageRef(ref)
}

// dropSnapshot удаляет снимок записи, которая так и не попала в историю
func (p *Pipeline) dropSnapshot(ctx context.Context, record entity.DetectionRecord, log logrus.FieldLogger) {
	if p.snapshots == nil || record.ImageRef == "" {
		return
	}
	if err := p.snapshots.Delete(ctx, record.ImageRef); err != nil {
		log.WithError(err).WithField("ref", record.ImageRef).Warn("failed to delete orphaned snapshot")
	}
}

// FrameResult итоги по всем рамкам кадра, в порядке рамок
type FrameResult struct {
	Frame       entity.Frame
	Outcomes    []entity.Outcome
	Annotations []entity.Annotation
}

// Admitted возвращает принятые записи
func (r FrameResult) Admitted() []entity.DetectionRecord {
	var out []entity.DetectionRecord
	for _, o := range r.Outcomes {
		if o.IsAdmitted() {
			out = append(out, *o.Record)
		}
	}
	return out
}

// ProcessFrame обрабатывает все рамки кадра. Ошибка одной рамки не мешает остальным.
func (p *Pipeline) ProcessFrame(ctx context.Context, frame entity.Frame, boxes []entity.BoundingBox) FrameResult {
	if frame.CapturedAt.IsZero() {
		frame.CapturedAt = p.now()
	}

	outcomes := make([]entity.Outcome, len(boxes))

	var g errgroup.Group
	g.SetLimit(max(p.workers, 1))
	for i, box := range boxes {
		g.Go(func() error {
			outcomes[i] = p.ProcessRegion(ctx, frame, box)
			return nil
		})
	}
	_ = g.Wait()

	result := FrameResult{Frame: frame, Outcomes: outcomes}
	for i, o := range outcomes {
		if o.IsAdmitted() {
			result.Annotations = append(result.Annotations, entity.Annotation{Box: boxes[i], Text: o.Plate})
		}
	}
	return result
}
