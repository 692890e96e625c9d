package app

import (
	"context"
	"errors"
	"image"
	"io"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"lpr-gate/internal/domain/entity"
	"lpr-gate/internal/domain/port"
)

// DefaultPlateClass класс детектора, который считается номером
const DefaultPlateClass = "license_plate"

// Runner цикл кадр за кадром: источник, детектор, конвейер, уведомления
type Runner struct {
	detector  port.PlateDetector
	pipeline  *Pipeline
	renderer  port.FrameRenderer
	notifiers []port.AdmissionNotifier

	threshold  float64
	plateClass string
	limiter    *rate.Limiter

	stopped atomic.Bool
	log     logrus.FieldLogger
}

// RunnerConfig параметры отбора детекций и темпа
type RunnerConfig struct {
	Threshold  float64 // минимальная уверенность детектора
	PlateClass string  // пусто: любой класс
	MaxFPS     float64 // 0 без ограничения
}

func NewRunner(detector port.PlateDetector, pipeline *Pipeline, renderer port.FrameRenderer, cfg RunnerConfig, log logrus.FieldLogger, notifiers ...port.AdmissionNotifier) *Runner {
	r := &Runner{
		detector:   detector,
		pipeline:   pipeline,
		renderer:   renderer,
		notifiers:  notifiers,
		threshold:  cfg.Threshold,
		plateClass: cfg.PlateClass,
		log:        log,
	}
	if cfg.MaxFPS > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.MaxFPS), 1)
	}
	return r
}

// Stop просит цикл остановиться на границе кадра. Не блокирует.
func (r *Runner) Stop() {
	r.stopped.Store(true)
}

// Run читает кадры до io.EOF, отмены ctx или Stop. Текущий кадр всегда дорабатывается до конца.
func (r *Runner) Run(ctx context.Context, source port.FrameSource) error {
	for {
		if r.stopped.Load() || ctx.Err() != nil {
			r.log.Info("runner stopped")
			return nil
		}

		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil
			}
		}

		frame, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			r.log.Info("frame source exhausted")
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.log.WithError(err).Warn("failed to read frame")
			continue
		}

		r.Step(ctx, frame)
	}
}

// Step обрабатывает один кадр
func (r *Runner) Step(ctx context.Context, frame entity.Frame) FrameResult {
	log := r.log.WithField("source", frame.Source)

	detections, err := r.detector.Detect(ctx, frame.Image)
	if err != nil {
		log.WithError(err).Warn("detector failed, frame skipped")
		return FrameResult{Frame: frame}
	}

	boxes := FilterDetections(detections, r.threshold, r.plateClass)
	if len(boxes) == 0 {
		return FrameResult{Frame: frame}
	}

	result := r.pipeline.ProcessFrame(ctx, frame, boxes)
	admitted := result.Admitted()
	if len(admitted) == 0 {
		return result
	}

	var annotated image.Image = frame.Image
	if r.renderer != nil {
		annotated = r.renderer.Render(frame.Image, result.Annotations)
	}
	for _, record := range admitted {
		for _, n := range r.notifiers {
			if err := n.NotifyAdmitted(ctx, record, annotated); err != nil {
				log.WithError(err).WithField("plate", record.Plate).Warn("failed to notify")
			}
		}
	}
	return result
}

// FilterDetections оставляет рамки номеров с уверенностью не ниже порога
func FilterDetections(detections []entity.Detection, threshold float64, class string) []entity.BoundingBox {
	boxes := make([]entity.BoundingBox, 0, len(detections))
	for _, d := range detections {
		if d.Confidence < threshold {
			continue
		}
		if class != "" && d.Class != class {
			continue
		}
		boxes = append(boxes, d.Box)
	}
	return boxes
}
