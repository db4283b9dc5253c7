package server

import (
	"context"
	"io"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type SSEClientListener[T any] interface {
	OnSSENewClient(newClient *SSEClient)
	OnSSEClientClosing(client *SSEClient)
	OnSSEClientClosed()
	OnSSESend(message T, client *SSEClient) error
	OnSSESendingCompleted(result SSEResult)
}

// SSEServer fans messages out to the clients subscribed to the message topic. The
// topic of a client is read from the route parameter topicParam.
type SSEServer[T any] struct {
	ctx               context.Context
	clientListener    SSEClientListener[T]
	topicParam        string
	eventName         string
	topicOf           func(T) string
	MessageChan       chan T
	NewClientsChan    chan *SSEClient
	ClosedClientsChan chan *SSEClient
	TotalClients      map[string]map[*SSEClient]struct{}
	ResultChan        chan SSEResult
}

func NewSSEServer[T any](ctx context.Context, topicParam, eventName string, topicOf func(T) string, listener SSEClientListener[T]) *SSEServer[T] {
	server := &SSEServer[T]{
		ctx:               ctx,
		clientListener:    listener,
		topicParam:        topicParam,
		eventName:         eventName,
		topicOf:           topicOf,
		MessageChan:       make(chan T),
		NewClientsChan:    make(chan *SSEClient),
		ClosedClientsChan: make(chan *SSEClient),
		TotalClients:      make(map[string]map[*SSEClient]struct{}),
		ResultChan:        make(chan SSEResult),
	}

	go server.listen()
	go server.listenOnResultCallback()

	return server
}

func (e *SSEServer[T]) Send(messages ...T) {
	for _, message := range messages {
		select {
		case e.MessageChan <- message:
		case <-e.ctx.Done():
			return
		}
	}
}

func (e *SSEServer[T]) ServeHTTP() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := NewSSEClient(c.Request.Context(), c.Param(e.topicParam))

		select {
		case e.NewClientsChan <- client:
		case <-e.ctx.Done():
			return
		}

		defer func() {
			select {
			case e.ClosedClientsChan <- client:
			case <-e.ctx.Done():
			}
		}()

		c.Stream(func(w io.Writer) bool {
			select {
			case <-client.Context.Done():
				return false
			case event, ok := <-client.EventChan:
				if !ok {
					return false
				}
				c.Render(-1, event)
				e.reportResult(SSEResult{Result: SSEDelivered, Topic: client.Topic, Event: event})
				return true
			}
		})
	}
}

func (e *SSEServer[T]) listen() {
	for {
		select {
		case <-e.ctx.Done():
			return
		case client := <-e.NewClientsChan:
			if e.clientListener != nil {
				e.clientListener.OnSSENewClient(client)
			}
			if _, ok := e.TotalClients[client.Topic]; !ok {
				e.TotalClients[client.Topic] = make(map[*SSEClient]struct{})
			}
			e.TotalClients[client.Topic][client] = struct{}{}
			log.Debug().Msgf("Client added... %s has %d registered clients", client.Topic, len(e.TotalClients[client.Topic]))
		case client := <-e.ClosedClientsChan:
			if e.clientListener != nil {
				e.clientListener.OnSSEClientClosing(client)
			}
			delete(e.TotalClients[client.Topic], client)
			if len(e.TotalClients[client.Topic]) == 0 {
				delete(e.TotalClients, client.Topic)
			}
			close(client.EventChan)
			if e.clientListener != nil {
				e.clientListener.OnSSEClientClosed()
			}
			log.Debug().Msgf("Removed client... %s has %d registered clients", client.Topic, len(e.TotalClients[client.Topic]))
		case message := <-e.MessageChan:
			for sseClient := range e.TotalClients[e.topicOf(message)] {
				if e.clientListener != nil {
					e.doListenerMessageSending(message, sseClient)
				} else {
					e.doDefaultMessageSending(message, sseClient)
				}
			}
		}
	}
}

func (e *SSEServer[T]) listenOnResultCallback() {
	for {
		select {
		case <-e.ctx.Done():
			return
		case result := <-e.ResultChan:
			if e.clientListener != nil {
				e.clientListener.OnSSESendingCompleted(result)
			}
		}
	}
}

func (e *SSEServer[T]) reportResult(result SSEResult) {
	select {
	case e.ResultChan <- result:
	case <-e.ctx.Done():
	}
}

func (e *SSEServer[T]) doListenerMessageSending(message T, client *SSEClient) {
	err := e.clientListener.OnSSESend(message, client)
	if err != nil {
		log.Error().Err(err).
			Str("topic", client.Topic).
			Interface("data", message).
			Msg("Failed to send notification")

		go e.reportResult(SSEResult{
			Result: SSEError,
			Topic:  client.Topic,
			Event:  sse.Event{Event: e.eventName, Data: message},
			Error:  err,
		})
	}
}

// doDefaultMessageSending drops the event for a client whose buffer is full.
func (e *SSEServer[T]) doDefaultMessageSending(message T, client *SSEClient) {
	event := sse.Event{
		Id:    uuid.NewString(),
		Event: e.eventName,
		Data:  message,
	}
	select {
	case client.EventChan <- event:
	default:
		log.Warn().Str("topic", client.Topic).Msg("sse client too slow, event dropped")
		go e.reportResult(SSEResult{Result: SSEUndelivered, Topic: client.Topic, Event: event})
	}
}
