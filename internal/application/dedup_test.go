package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lpr-gate/internal/domain/entity"
	"lpr-gate/internal/infrastructure/storage"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestDedupGate_WindowBoundary(t *testing.T) {
	repo := storage.NewMemoryDetectionRepository()
	gate := NewDedupGate(repo, 60*time.Second, testLog)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, entity.NewDetectionRecord("XYZ1234", t0)))

	require.Equal(t, DecisionDuplicate, gate.Check(ctx, "XYZ1234", t0.Add(59*time.Second)))
	require.Equal(t, DecisionDuplicate, gate.Check(ctx, "XYZ1234", t0.Add(60*time.Second)))
	require.Equal(t, DecisionAdmit, gate.Check(ctx, "XYZ1234", t0.Add(61*time.Second)))
	require.Equal(t, DecisionAdmit, gate.Check(ctx, "XYZ1235", t0.Add(time.Second)))
}

func TestDedupGate_CheckDoesNotWrite(t *testing.T) {
	repo := storage.NewMemoryDetectionRepository()
	gate := NewDedupGate(repo, time.Minute, testLog)

	require.Equal(t, DecisionAdmit, gate.Check(context.Background(), "ABC1234", t0))
	require.Zero(t, repo.Count())
}

func TestDedupGate_FailsClosed(t *testing.T) {
	history := &brokenHistory{}
	gate := NewDedupGate(history, time.Minute, testLog)
	ctx := context.Background()

	require.Equal(t, DecisionUnavailable, gate.Check(ctx, "ABC1234", t0))

	_, decision := gate.Admit(ctx, entity.NewDetectionRecord("ABC1234", t0))
	require.Equal(t, DecisionUnavailable, decision)
	require.Zero(t, history.inserts)
}

func TestDedupGate_InsertFailureIsUnavailable(t *testing.T) {
	gate := NewDedupGate(readOnlyHistory{}, time.Minute, testLog)

	_, decision := gate.Admit(context.Background(), entity.NewDetectionRecord("ABC1234", t0))
	require.Equal(t, DecisionUnavailable, decision)
}

func TestDedupGate_AdmitInsertsOnce(t *testing.T) {
	repo := storage.NewMemoryDetectionRepository()
	gate := NewDedupGate(repo, time.Minute, testLog)
	ctx := context.Background()

	rec, decision := gate.Admit(ctx, entity.NewDetectionRecord("ABC1234", t0))
	require.Equal(t, DecisionAdmit, decision)
	require.Equal(t, "ABC1234", rec.Plate)

	_, decision = gate.Admit(ctx, entity.NewDetectionRecord("ABC1234", t0.Add(10*time.Second)))
	require.Equal(t, DecisionDuplicate, decision)
	require.Equal(t, 1, repo.Count())
}

func TestDedupGate_ConcurrentAdmitsSamePlateOnce(t *testing.T) {
	repo := storage.NewMemoryDetectionRepository()
	gate := NewDedupGate(repo, time.Minute, testLog)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, d := gate.Admit(ctx, entity.NewDetectionRecord("ABC1234", t0))
			if d == DecisionAdmit {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, admitted)
	require.Equal(t, 1, repo.Count())
	require.Empty(t, gate.locks.locks)
}

func TestDedupGate_PrepareRunsOnlyOnAdmit(t *testing.T) {
	repo := storage.NewMemoryDetectionRepository()
	gate := NewDedupGate(repo, time.Minute, testLog)
	ctx := context.Background()

	calls := 0
	prepare := func(r entity.DetectionRecord) entity.DetectionRecord {
		calls++
		return r.WithImageRef("snap.jpg")
	}

	rec, decision := gate.AdmitPrepared(ctx, entity.NewDetectionRecord("ABC1234", t0), prepare)
	require.Equal(t, DecisionAdmit, decision)
	require.Equal(t, "snap.jpg", rec.ImageRef)

	_, decision = gate.AdmitPrepared(ctx, entity.NewDetectionRecord("ABC1234", t0), prepare)
	require.Equal(t, DecisionDuplicate, decision)
	require.Equal(t, 1, calls)

	recent, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, "snap.jpg", recent[0].ImageRef)
}

func TestNewDedupGate_DefaultWindow(t *testing.T) {
	gate := NewDedupGate(storage.NewMemoryDetectionRepository(), 0, testLog)
	require.Equal(t, DefaultDedupWindow, gate.Window())
}
