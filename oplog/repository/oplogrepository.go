package repository

import (
	"sync"

	"github.com/blutspende/qcgraph/oplog/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type OperationLogRepository interface {
	CreateOperationLog(entity model.OperationLogEntity)
	LoadOperationLogs(deviceID uuid.UUID) []model.OperationLogEntity
}

// OperationLogStorage is a bounded ring buffer, newest entry first.
type OperationLogStorage struct {
	mutex         sync.Mutex
	operationLogs []model.OperationLogEntity
	next          int
	size          int
}

func NewOperationLogRepository(size int) OperationLogRepository {
	log.Trace().Msg("Creating new operation log repository")
	if size < 1 {
		size = 1
	}
	return &OperationLogStorage{
		operationLogs: make([]model.OperationLogEntity, 0, size),
		size:          size,
	}
}

func (s *OperationLogStorage) CreateOperationLog(entity model.OperationLogEntity) {
	log.Trace().Interface("object", entity).Msg("Saving operation log")
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if len(s.operationLogs) < s.size {
		s.operationLogs = append(s.operationLogs, entity)
	} else {
		s.operationLogs[s.next] = entity
	}
	s.next = (s.next + 1) % s.size
}

func (s *OperationLogStorage) LoadOperationLogs(deviceID uuid.UUID) []model.OperationLogEntity {
	log.Trace().Msg("Loading operation logs")
	s.mutex.Lock()
	defer s.mutex.Unlock()
	operationLogEntities := make([]model.OperationLogEntity, 0, len(s.operationLogs))
	count := len(s.operationLogs)
	for i := 1; i <= count; i++ {
		entity := s.operationLogs[(s.next-i+count)%count]
		if entity.DeviceID == deviceID {
			operationLogEntities = append(operationLogEntities, entity)
		}
	}
	return operationLogEntities
}
