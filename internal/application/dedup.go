package app

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"lpr-gate/internal/domain/entity"
	"lpr-gate/internal/domain/port"
)

// DefaultDedupWindow окно подавления повторов
const DefaultDedupWindow = 60 * time.Second

// Decision решение DedupGate
type Decision int

const (
	DecisionAdmit       Decision = iota // номер новый
	DecisionDuplicate                   // уже был в окне
	DecisionUnavailable                 // история недоступна, отказываем
)

func (d Decision) String() string {
	switch d {
	case DecisionAdmit:
		return "admit"
	case DecisionDuplicate:
		return "duplicate"
	default:
		return "store_unavailable"
	}
}

// DedupGate пропускает номер не чаще одного раза за окно.
// При ошибке истории отказывает: лучше пропустить номер, чем записать дубль.
type DedupGate struct {
	history port.DetectionHistory
	window  time.Duration
	locks   *keyedMutex
	log     logrus.FieldLogger
}

func NewDedupGate(history port.DetectionHistory, window time.Duration, log logrus.FieldLogger) *DedupGate {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &DedupGate{
		history: history,
		window:  window,
		locks:   newKeyedMutex(),
		log:     log,
	}
}

// Window возвращает текущее окно
func (g *DedupGate) Window() time.Duration {
	return g.window
}

// Check ищет запись номера в [now-window, now]. Ничего не записывает.
func (g *DedupGate) Check(ctx context.Context, plate string, now time.Time) Decision {
	exists, err := g.history.Exists(ctx, plate, now.Add(-g.window), now)
	if err != nil {
		g.log.WithFields(logrus.Fields{
			"plate": plate,
			"error": err,
		}).Warn("dedup check failed, rejecting")
		return DecisionUnavailable
	}
	if exists {
		return DecisionDuplicate
	}
	return DecisionAdmit
}

// Admit проверяет и записывает номер атомарно относительно других вызовов с тем же номером.
// Запись сохраняется только при DecisionAdmit.
func (g *DedupGate) Admit(ctx context.Context, record entity.DetectionRecord) (entity.DetectionRecord, Decision) {
	return g.AdmitPrepared(ctx, record, nil)
}

// AdmitPrepared как Admit, но после решения Admit и до записи вызывает prepare
// (например, чтобы сохранить снимок и проставить ImageRef).
func (g *DedupGate) AdmitPrepared(ctx context.Context, record entity.DetectionRecord, prepare func(entity.DetectionRecord) entity.DetectionRecord) (entity.DetectionRecord, Decision) {
	unlock := g.locks.Lock(record.Plate)
	defer unlock()

	decision := g.Check(ctx, record.Plate, record.Timestamp)
	if decision != DecisionAdmit {
		return record, decision
	}

	if prepare != nil {
		record = prepare(record)
	}

	if err := g.history.Insert(ctx, record); err != nil {
		g.log.WithFields(logrus.Fields{
			"plate": record.Plate,
			"id":    record.ID,
			"error": err,
		}).Error("failed to insert detection record")
		return record, DecisionUnavailable
	}
	return record, DecisionAdmit
}

// keyedMutex мьютекс на каждый ключ; запись удаляется, когда ключ никто не держит
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
