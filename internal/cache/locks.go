package cache

import (
	"sync"

	"github.com/google/uuid"
)

// PatientLocks is the sharded per-patient logical lock from spec.md §9's
// concurrency design note: writes to one patient's derived data serialize
// against each other without contending with unrelated patients' writes.
// Grounded on the teacher's acmg_rule_engine.go sync.Map-guarded evaluation
// cache pattern, generalized here to per-key *sync.Mutex instead of a
// single shared map value.
type PatientLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*refCountedMutex
}

type refCountedMutex struct {
	mu  sync.Mutex
	ref int
}

func NewPatientLocks() *PatientLocks {
	return &PatientLocks{locks: make(map[uuid.UUID]*refCountedMutex)}
}

// Lock acquires the per-patient lock, returning an unlock function. The
// underlying mutex is released from the shard map once its last holder
// unlocks, so long-lived processes don't accumulate one mutex per patient
// ever seen.
func (l *PatientLocks) Lock(patientID uuid.UUID) func() {
	l.mu.Lock()
	rm, ok := l.locks[patientID]
	if !ok {
		rm = &refCountedMutex{}
		l.locks[patientID] = rm
	}
	rm.ref++
	l.mu.Unlock()

	rm.mu.Lock()
	return func() {
		rm.mu.Unlock()
		l.mu.Lock()
		rm.ref--
		if rm.ref == 0 {
			delete(l.locks, patientID)
		}
		l.mu.Unlock()
	}
}
