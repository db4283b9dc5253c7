package service

import (
	"github.com/blutspende/qcgraph/oplog/model"
	"github.com/blutspende/qcgraph/server"
	"github.com/gin-contrib/sse"
	"github.com/rs/zerolog/log"
)

const OperationLogEventName = "operation-log"

type OperationLogClientListener struct {
}

func NewOperationLogSSEClientListener() server.SSEClientListener[model.OperationLogDTO] {
	return &OperationLogClientListener{}
}

// OperationLogTopic routes an entry to the subscribers of its device.
func OperationLogTopic(message model.OperationLogDTO) string {
	return message.DeviceID.String()
}

func (l *OperationLogClientListener) OnSSENewClient(newClient *server.SSEClient) {
}

func (l *OperationLogClientListener) OnSSEClientClosing(client *server.SSEClient) {
}

func (l *OperationLogClientListener) OnSSEClientClosed() {
}

func (l *OperationLogClientListener) OnSSESend(message model.OperationLogDTO, client *server.SSEClient) error {
	select {
	case client.EventChan <- sse.Event{Id: message.ID.String(), Event: OperationLogEventName, Data: message}:
	default:
		log.Warn().Str("topic", client.Topic).Msg("operation log subscriber too slow, entry dropped")
	}
	return nil
}

func (l *OperationLogClientListener) OnSSESendingCompleted(result server.SSEResult) {
	if result.Error != nil {
		log.Debug().Err(result.Error).Str("topic", result.Topic).Msg("operation log event not delivered")
	}
}
