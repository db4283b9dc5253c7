package service

import (
	"time"

	"github.com/blutspende/qcgraph/oplog/model"
	"github.com/blutspende/qcgraph/oplog/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type OperationLogService interface {
	Succeeded(entry Entry)
	Failed(entry Entry, err error)
	Denied(entry Entry)
	GetOperationLogs(deviceID uuid.UUID) []model.OperationLogDTO
}

// Entry describes a QC operation before its outcome is known.
type Entry struct {
	DeviceID  uuid.UUID
	Operation model.Operation
	UserName  string
	AssayName string
	TargetID  string
	Message   string
}

// Broadcaster pushes new log entries to live subscribers.
type Broadcaster interface {
	Send(messages ...model.OperationLogDTO)
}

type operationLogService struct {
	repository  repository.OperationLogRepository
	broadcaster Broadcaster
}

func NewOperationLogService(repository repository.OperationLogRepository, broadcaster Broadcaster) OperationLogService {
	log.Trace().Msg("Creating new operation log service")
	return &operationLogService{
		repository:  repository,
		broadcaster: broadcaster,
	}
}

func (s *operationLogService) Succeeded(entry Entry) {
	s.createOperationLog(entry, model.OutcomeSucceeded, entry.Message)
}

func (s *operationLogService) Failed(entry Entry, err error) {
	message := entry.Message
	if err != nil {
		message = err.Error()
	}
	s.createOperationLog(entry, model.OutcomeFailed, message)
}

func (s *operationLogService) Denied(entry Entry) {
	s.createOperationLog(entry, model.OutcomeDenied, entry.Message)
}

func (s *operationLogService) createOperationLog(entry Entry, outcome model.Outcome, message string) {
	entity := model.OperationLogEntity{
		ID:        uuid.New(),
		DeviceID:  entry.DeviceID,
		CreatedAt: time.Now().UTC(),
		Operation: entry.Operation,
		Outcome:   outcome,
		UserName:  entry.UserName,
		AssayName: entry.AssayName,
		TargetID:  entry.TargetID,
		Message:   message,
	}
	log.Info().
		Str("deviceId", entity.DeviceID.String()).
		Str("operation", string(entity.Operation)).
		Str("outcome", string(entity.Outcome)).
		Str("user", entity.UserName).
		Str("targetId", entity.TargetID).
		Msg("qc operation")

	s.repository.CreateOperationLog(entity)
	if s.broadcaster != nil {
		go s.broadcaster.Send(convertEntityToDTO(entity))
	}
}

func (s *operationLogService) GetOperationLogs(deviceID uuid.UUID) []model.OperationLogDTO {
	entities := s.repository.LoadOperationLogs(deviceID)
	operationLogDTOs := make([]model.OperationLogDTO, len(entities))
	for i := range entities {
		operationLogDTOs[i] = convertEntityToDTO(entities[i])
	}
	return operationLogDTOs
}

func convertEntityToDTO(entity model.OperationLogEntity) model.OperationLogDTO {
	return model.OperationLogDTO{
		ID:        entity.ID,
		DeviceID:  entity.DeviceID,
		CreatedAt: entity.CreatedAt,
		Operation: entity.Operation,
		Outcome:   entity.Outcome,
		UserName:  entity.UserName,
		AssayName: entity.AssayName,
		TargetID:  entity.TargetID,
		Message:   entity.Message,
	}
}
