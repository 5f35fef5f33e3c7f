package calib

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/qiqb-osaka/readout-engine/core"
	"github.com/qiqb-osaka/readout-engine/spam"
	"go.uber.org/zap"
)

// MemoryStore keeps the latest finalized calibration per device in memory.
// A new calibration run replaces the previous one.
type MemoryStore struct {
	sets map[string]*spam.CalibrationSet
	when map[string]string
	mu   sync.RWMutex
}

func (s *MemoryStore) Setup(*core.Conf) error {
	s.sets = make(map[string]*spam.CalibrationSet)
	s.when = make(map[string]string)
	return nil
}

func (s *MemoryStore) Put(deviceID string, set *spam.CalibrationSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[deviceID] = set
	s.when[deviceID] = strfmt.DateTime(time.Now()).String()
	zap.L().Info(fmt.Sprintf("[MemoryStore] stored a calibration of device %s over qubits %v",
		deviceID, set.Layout.Qubits()))
}

func (s *MemoryStore) Get(deviceID string) (*spam.CalibrationSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[deviceID]
	return set, ok
}

func (s *MemoryStore) CalibratedAt(deviceID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.when[deviceID]
	return w, ok
}
