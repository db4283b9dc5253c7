package qcgraph

import (
	"context"
	"sync"

	"github.com/blutspende/qcgraph/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type pageEventType int

const (
	PageCreatedEvent pageEventType = 1 << iota
	PageClosedEvent
)

func (pe pageEventType) IsOneOf(event pageEventType) bool {
	return event&pe != 0
}

type PageListener interface {
	ProcessPageEvent(page Page, event pageEventType)
}

// PageManager owns the open chart pages and routes QC result notifications to them.
type PageManager interface {
	CreatePage(kind ChartKind) Page
	GetPage(id uuid.UUID) (Page, bool)
	ClosePage(id uuid.UUID) error
	GetPages() []Page
	RegisterPageListener(listener PageListener, events ...pageEventType)

	SendQcResultNotification(notification QcResultNotification)
	GetNotificationQueue() *utils.ConcurrentQueue[QcResultNotification]
	StartNotificationWorkers(workers int)
	Close()
}

type pageManager struct {
	ctx                 context.Context
	deps                PageDependencies
	pages               map[uuid.UUID]Page
	pagesMutex          sync.RWMutex
	pageListeners       map[pageEventType][]PageListener
	pageListenersMutex  sync.Mutex
	notificationQueue   *utils.ConcurrentQueue[QcResultNotification]
	notificationWorkers sync.WaitGroup
}

func NewPageManager(ctx context.Context, deps PageDependencies) PageManager {
	return &pageManager{
		ctx:               ctx,
		deps:              deps,
		pages:             make(map[uuid.UUID]Page),
		pageListeners:     make(map[pageEventType][]PageListener),
		notificationQueue: utils.NewConcurrentQueue[QcResultNotification](ctx),
	}
}

func (pm *pageManager) CreatePage(kind ChartKind) Page {
	var page Page
	if kind == ChartYouden {
		page = NewYoudenPage(pm.ctx, pm.deps)
	} else {
		ljPage := NewLJPage(pm.ctx, pm.deps)
		if kind == ChartLJByCount {
			_ = ljPage.Dispatch(pm.ctx, XAxisModeChanged{Mode: XAxisByCount})
		}
		page = ljPage
	}

	pm.pagesMutex.Lock()
	pm.pages[page.ID()] = page
	pm.pagesMutex.Unlock()

	log.Debug().Str("pageId", page.ID().String()).Int("kind", int(kind)).Msg("chart page created")
	pm.notifyPageListeners(page, PageCreatedEvent)
	return page
}

func (pm *pageManager) GetPage(id uuid.UUID) (Page, bool) {
	pm.pagesMutex.RLock()
	defer pm.pagesMutex.RUnlock()
	page, ok := pm.pages[id]
	return page, ok
}

func (pm *pageManager) ClosePage(id uuid.UUID) error {
	pm.pagesMutex.Lock()
	page, ok := pm.pages[id]
	delete(pm.pages, id)
	pm.pagesMutex.Unlock()
	if !ok {
		return errors.Wrapf(ErrPageNotFound, "id %s", id)
	}

	page.Close()
	log.Debug().Str("pageId", id.String()).Msg("chart page closed")
	pm.notifyPageListeners(page, PageClosedEvent)
	return nil
}

func (pm *pageManager) GetPages() []Page {
	pm.pagesMutex.RLock()
	defer pm.pagesMutex.RUnlock()
	pages := make([]Page, 0, len(pm.pages))
	for _, page := range pm.pages {
		pages = append(pages, page)
	}
	return pages
}

func (pm *pageManager) RegisterPageListener(listener PageListener, events ...pageEventType) {
	pm.pageListenersMutex.Lock()
	defer pm.pageListenersMutex.Unlock()
	for _, event := range events {
		pm.pageListeners[event] = append(pm.pageListeners[event], listener)
	}
}

func (pm *pageManager) notifyPageListeners(page Page, event pageEventType) {
	pm.pageListenersMutex.Lock()
	listeners := pm.pageListeners[event]
	pm.pageListenersMutex.Unlock()
	for i := range listeners {
		listeners[i].ProcessPageEvent(page, event)
	}
}

func (pm *pageManager) SendQcResultNotification(notification QcResultNotification) {
	log.Trace().Str("assay", notification.AssayName).Msg("Queueing qc result notification")
	pm.notificationQueue.Enqueue(notification)
}

func (pm *pageManager) GetNotificationQueue() *utils.ConcurrentQueue[QcResultNotification] {
	return pm.notificationQueue
}

// StartNotificationWorkers hands every queued notification to all open pages. Pages
// ignore notifications for other devices or assays.
func (pm *pageManager) StartNotificationWorkers(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		pm.notificationWorkers.Add(1)
		go func() {
			defer pm.notificationWorkers.Done()
			for {
				notification, ok := pm.notificationQueue.Dequeue()
				if !ok {
					return
				}
				pm.dispatchNotification(notification)
			}
		}()
	}
}

func (pm *pageManager) dispatchNotification(notification QcResultNotification) {
	event := QcResultsUpdated{Notification: notification}
	for _, page := range pm.GetPages() {
		if err := page.Dispatch(pm.ctx, event); err != nil {
			log.Warn().Err(err).Str("pageId", page.ID().String()).Msg("dispatch qc result notification failed")
		}
	}
}

// Close closes every page and waits for the notification workers. The context the
// manager was created with must be done for the workers to stop.
func (pm *pageManager) Close() {
	for _, page := range pm.GetPages() {
		_ = pm.ClosePage(page.ID())
	}
	pm.notificationWorkers.Wait()
}
