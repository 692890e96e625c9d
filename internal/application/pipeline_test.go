package app

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lpr-gate/internal/domain/entity"
	"lpr-gate/internal/domain/plate"
	"lpr-gate/internal/infrastructure/storage"
)

var plateBox = entity.BoundingBox{X1: 100, Y1: 100, X2: 220, Y2: 160}

// вырезка 130x70, номер в локальных координатах
var cropQuad = entity.Quad{{X: 5, Y: 5}, {X: 124, Y: 5}, {X: 124, Y: 64}, {X: 5, Y: 64}}

func newTestPipeline(v *spyVision, rec *fakeRecognizer, history *storage.MemoryDetectionRepository, opts ...PipelineOption) *Pipeline {
	gate := NewDedupGate(history, time.Minute, testLog)
	return NewPipeline(v, rec, plate.MustValidator(), gate, testLog, opts...)
}

func TestPipeline_EndToEndAdmit(t *testing.T) {
	q := cropQuad
	v := newSpyVision(&q)
	rec := &fakeRecognizer{text: "ABC4E67 "}
	repo := storage.NewMemoryDetectionRepository()
	p := newTestPipeline(v, rec, repo)

	frame := testFrame(640, 480, t0)
	out := p.ProcessRegion(context.Background(), frame, plateBox)

	require.Equal(t, entity.StatusAdmitted, out.Status)
	require.Equal(t, "ABC4E67", out.Plate)
	require.NotNil(t, out.Record)
	require.True(t, out.Record.Timestamp.Equal(t0))
	require.Equal(t, 1, repo.Count())

	require.Equal(t, 1, v.rectifyCalls)
	require.Equal(t, []image.Rectangle{image.Rect(0, 0, 119, 59)}, v.filterInputs)
}

func TestPipeline_FallbackSkipsRectify(t *testing.T) {
	v := newSpyVision(nil)
	rec := &fakeRecognizer{text: "ABC1234"}
	p := newTestPipeline(v, rec, storage.NewMemoryDetectionRepository())

	out := p.ProcessRegion(context.Background(), testFrame(640, 480, t0), plateBox)

	require.True(t, out.IsAdmitted())
	require.Zero(t, v.rectifyCalls)
	require.Equal(t, []image.Rectangle{image.Rect(0, 0, 130, 70)}, v.filterInputs)
}

func TestPipeline_FailsClosedWhenStoreDown(t *testing.T) {
	v := newSpyVision(nil)
	rec := &fakeRecognizer{text: "ABC1234"}
	history := &brokenHistory{}
	gate := NewDedupGate(history, time.Minute, testLog)
	p := NewPipeline(v, rec, plate.MustValidator(), gate, testLog)

	out := p.ProcessRegion(context.Background(), testFrame(640, 480, t0), plateBox)

	require.Equal(t, entity.Rejected("ABC1234", entity.ReasonStoreUnavailable), out)
	require.Zero(t, history.inserts)
}

func TestPipeline_DuplicateRejected(t *testing.T) {
	v := newSpyVision(nil)
	rec := &fakeRecognizer{text: "ABC1234"}
	repo := storage.NewMemoryDetectionRepository()
	p := newTestPipeline(v, rec, repo)
	ctx := context.Background()

	require.True(t, p.ProcessRegion(ctx, testFrame(640, 480, t0), plateBox).IsAdmitted())

	out := p.ProcessRegion(ctx, testFrame(640, 480, t0.Add(30*time.Second)), plateBox)
	require.Equal(t, entity.Rejected("ABC1234", entity.ReasonDuplicate), out)
	require.Equal(t, 1, repo.Count())

	out = p.ProcessRegion(ctx, testFrame(640, 480, t0.Add(2*time.Minute)), plateBox)
	require.True(t, out.IsAdmitted())
	require.Equal(t, 2, repo.Count())
}

func TestPipeline_NormalizesBeforeValidation(t *testing.T) {
	v := newSpyVision(nil)
	rec := &fakeRecognizer{text: "0bc-1234"}
	p := newTestPipeline(v, rec, storage.NewMemoryDetectionRepository())

	out := p.ProcessRegion(context.Background(), testFrame(640, 480, t0), plateBox)
	require.True(t, out.IsAdmitted())
	require.Equal(t, "OBC1234", out.Plate)
}

func TestPipeline_InvalidFormat(t *testing.T) {
	v := newSpyVision(nil)
	rec := &fakeRecognizer{text: "HELLO"}
	repo := storage.NewMemoryDetectionRepository()
	p := newTestPipeline(v, rec, repo)

	out := p.ProcessRegion(context.Background(), testFrame(640, 480, t0), plateBox)
	require.Equal(t, entity.Rejected("HELLO", entity.ReasonInvalidFormat), out)
	require.Zero(t, repo.Count())
}

func TestPipeline_NoText(t *testing.T) {
	cases := []*fakeRecognizer{
		{err: entity.ErrNoText},
		{text: " -- "},
		{text: "ABC1234", err: errStoreDown},
	}
	for _, rec := range cases {
		p := newTestPipeline(newSpyVision(nil), rec, storage.NewMemoryDetectionRepository())
		out := p.ProcessRegion(context.Background(), testFrame(640, 480, t0), plateBox)
		require.Equal(t, entity.Skipped(entity.ReasonNoText), out)
	}
}

func TestPipeline_EmptyRegion(t *testing.T) {
	rec := &fakeRecognizer{text: "ABC1234"}
	p := newTestPipeline(newSpyVision(nil), rec, storage.NewMemoryDetectionRepository())

	out := p.ProcessRegion(context.Background(), testFrame(640, 480, t0), entity.BoundingBox{X1: 700, Y1: 500, X2: 760, Y2: 530})
	require.Equal(t, entity.Skipped(entity.ReasonEmptyRegion), out)
	require.Zero(t, rec.calls)
}

func TestPipeline_InvalidBox(t *testing.T) {
	rec := &fakeRecognizer{text: "ABC1234"}
	p := newTestPipeline(newSpyVision(nil), rec, storage.NewMemoryDetectionRepository())

	out := p.ProcessRegion(context.Background(), testFrame(640, 480, t0), entity.BoundingBox{X1: 220, Y1: 100, X2: 100, Y2: 160})
	require.Equal(t, entity.Skipped(entity.ReasonInvalidInput), out)
	require.Zero(t, rec.calls)
}

func TestPipeline_SnapshotRefStoredOnAdmit(t *testing.T) {
	snaps := &fakeSnapshots{}
	repo := storage.NewMemoryDetectionRepository()
	p := newTestPipeline(newSpyVision(nil), &fakeRecognizer{text: "ABC1234"}, repo, WithSnapshots(snaps))
	ctx := context.Background()

	out := p.ProcessRegion(ctx, testFrame(640, 480, t0), plateBox)
	require.True(t, out.IsAdmitted())
	require.Equal(t, "snap/"+out.Record.ID+".jpg", out.Record.ImageRef)

	out = p.ProcessRegion(ctx, testFrame(640, 480, t0), plateBox)
	require.Equal(t, entity.ReasonDuplicate, out.Reason)
	require.Len(t, snaps.saved, 1)
}

func TestPipeline_ClockUsedWithoutCaptureTime(t *testing.T) {
	repo := storage.NewMemoryDetectionRepository()
	p := newTestPipeline(newSpyVision(nil), &fakeRecognizer{text: "ABC1234"}, repo, WithClock(func() time.Time { return t0 }))

	out := p.ProcessRegion(context.Background(), testFrame(640, 480, time.Time{}), plateBox)
	require.True(t, out.IsAdmitted())
	require.True(t, out.Record.Timestamp.Equal(t0))
}

func TestPipeline_ProcessFrameKeepsBoxOrder(t *testing.T) {
	repo := storage.NewMemoryDetectionRepository()
	p := newTestPipeline(newSpyVision(nil), &fakeRecognizer{text: "ABC1234"}, repo)

	outside := entity.BoundingBox{X1: 700, Y1: 500, X2: 760, Y2: 530}
	res := p.ProcessFrame(context.Background(), testFrame(640, 480, t0), []entity.BoundingBox{plateBox, outside})

	require.Len(t, res.Outcomes, 2)
	require.True(t, res.Outcomes[0].IsAdmitted())
	require.Equal(t, entity.Skipped(entity.ReasonEmptyRegion), res.Outcomes[1])
	require.Equal(t, []entity.Annotation{{Box: plateBox, Text: "ABC1234"}}, res.Annotations)
	require.Len(t, res.Admitted(), 1)
}

func TestPipeline_ParallelBoxesAdmitSamePlateOnce(t *testing.T) {
	repo := storage.NewMemoryDetectionRepository()
	p := newTestPipeline(newSpyVision(nil), &fakeRecognizer{text: "ABC1234"}, repo, WithWorkers(4))

	boxes := []entity.BoundingBox{
		plateBox,
		{X1: 300, Y1: 100, X2: 420, Y2: 160},
		{X1: 100, Y1: 300, X2: 220, Y2: 360},
		{X1: 300, Y1: 300, X2: 420, Y2: 360},
	}
	res := p.ProcessFrame(context.Background(), testFrame(640, 480, t0), boxes)

	require.Len(t, res.Admitted(), 1)
	require.Equal(t, 1, repo.Count())
	for _, o := range res.Outcomes {
		if !o.IsAdmitted() {
			require.Equal(t, entity.ReasonDuplicate, o.Reason)
		}
	}
}

func TestPipeline_CaptureTimeBeforeEpoch(t *testing.T) {
	before := time.Date(1969, 12, 31, 23, 0, 0, 0, time.UTC)
	repo := storage.NewMemoryDetectionRepository()
	p := newTestPipeline(newSpyVision(nil), &fakeRecognizer{text: "ABC1234"}, repo)

	var res FrameResult
	require.NotPanics(t, func() {
		res = p.ProcessFrame(context.Background(), testFrame(640, 480, before), []entity.BoundingBox{plateBox})
	})

	require.Len(t, res.Admitted(), 1)
	require.True(t, res.Admitted()[0].Timestamp.Equal(before))
	require.Equal(t, 1, repo.Count())
}

func TestPipeline_SnapshotDeletedWhenInsertFails(t *testing.T) {
	snaps := &fakeSnapshots{}
	gate := NewDedupGate(readOnlyHistory{}, time.Minute, testLog)
	p := NewPipeline(newSpyVision(nil), &fakeRecognizer{text: "ABC1234"}, plate.MustValidator(), gate, testLog, WithSnapshots(snaps))

	out := p.ProcessRegion(context.Background(), testFrame(640, 480, t0), plateBox)

	require.Equal(t, entity.Rejected("ABC1234", entity.ReasonStoreUnavailable), out)
	require.Len(t, snaps.saved, 1)
	require.Equal(t, snaps.saved, snaps.deleted)
}

func TestPipeline_NoSnapshotDeleteWhenCheckFails(t *testing.T) {
	snaps := &fakeSnapshots{}
	gate := NewDedupGate(&brokenHistory{}, time.Minute, testLog)
	p := NewPipeline(newSpyVision(nil), &fakeRecognizer{text: "ABC1234"}, plate.MustValidator(), gate, testLog, WithSnapshots(snaps))

	out := p.ProcessRegion(context.Background(), testFrame(640, 480, t0), plateBox)

	require.Equal(t, entity.ReasonStoreUnavailable, out.Reason)
	require.Empty(t, snaps.saved)
	require.Empty(t, snaps.deleted)
}
