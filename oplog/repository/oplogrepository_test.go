package repository

import (
	"testing"

	"github.com/blutspende/qcgraph/oplog/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRingBufferKeepsNewestFirst(t *testing.T) {
	repository := NewOperationLogRepository(3)
	deviceID := uuid.New()

	for _, message := range []string{"1", "2", "3", "4", "5"} {
		repository.CreateOperationLog(model.OperationLogEntity{DeviceID: deviceID, Message: message})
	}

	entities := repository.LoadOperationLogs(deviceID)
	assert.Equal(t, 3, len(entities))
	assert.Equal(t, "5", entities[0].Message)
	assert.Equal(t, "4", entities[1].Message)
	assert.Equal(t, "3", entities[2].Message)
}

func TestLoadFiltersByDevice(t *testing.T) {
	repository := NewOperationLogRepository(10)
	deviceA := uuid.New()
	deviceB := uuid.New()

	repository.CreateOperationLog(model.OperationLogEntity{DeviceID: deviceA, Message: "a1"})
	repository.CreateOperationLog(model.OperationLogEntity{DeviceID: deviceB, Message: "b1"})
	repository.CreateOperationLog(model.OperationLogEntity{DeviceID: deviceA, Message: "a2"})

	entities := repository.LoadOperationLogs(deviceA)
	assert.Equal(t, 2, len(entities))
	assert.Equal(t, "a2", entities[0].Message)
	assert.Equal(t, "a1", entities[1].Message)

	assert.Equal(t, 0, len(repository.LoadOperationLogs(uuid.Nil)))
}
