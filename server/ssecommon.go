package server

import (
	"context"

	"github.com/gin-contrib/sse"
)

type SSEResultStatus int

const (
	SSEDelivered SSEResultStatus = iota
	SSEError
	SSEUndelivered
)

const clientBufferSize = 16

type SSEClient struct {
	Context   context.Context
	Topic     string
	EventChan chan sse.Event
}

type SSEResult struct {
	Result SSEResultStatus
	Topic  string
	Event  sse.Event
	Error  error
}

func NewSSEClient(ctx context.Context, topic string) *SSEClient {
	return &SSEClient{
		Context:   ctx,
		Topic:     topic,
		EventChan: make(chan sse.Event, clientBufferSize),
	}
}
