package qcgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// AssayCache serves assay metadata from memory, then from the optional shared store,
// and finally from the logic service.
type AssayCache interface {
	AssayMetadataLookup
	Invalidate()
	Set([]AssayInfo)
	GetAll() []AssayInfo
}

// AssayStore is a cache shared between service instances.
type AssayStore interface {
	Get(ctx context.Context, assayName string) (AssayInfo, bool, error)
	Set(ctx context.Context, assayInfo AssayInfo, ttl time.Duration) error
}

type cachedAssay struct {
	assayInfo AssayInfo
	expiresAt time.Time
}

type assayCache struct {
	client LogicControlClient
	store  AssayStore
	ttl    time.Duration
	now    func() time.Time
	assays map[string]cachedAssay
	mutex  sync.Mutex
}

// NewAssayCache creates the cache. store may be nil.
func NewAssayCache(client LogicControlClient, store AssayStore, ttl time.Duration) AssayCache {
	return &assayCache{
		client: client,
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		assays: make(map[string]cachedAssay),
	}
}

func (ac *assayCache) Invalidate() {
	ac.mutex.Lock()
	defer ac.mutex.Unlock()
	ac.assays = make(map[string]cachedAssay)
}

func (ac *assayCache) Set(assays []AssayInfo) {
	ac.mutex.Lock()
	defer ac.mutex.Unlock()
	expiresAt := ac.now().Add(ac.ttl)
	for _, assayInfo := range assays {
		ac.assays[assayInfo.AssayName] = cachedAssay{assayInfo: assayInfo, expiresAt: expiresAt}
	}
}

func (ac *assayCache) GetAll() []AssayInfo {
	ac.mutex.Lock()
	defer ac.mutex.Unlock()
	assays := make([]AssayInfo, 0, len(ac.assays))
	for _, cached := range ac.assays {
		assays = append(assays, cached.assayInfo)
	}
	return assays
}

func (ac *assayCache) GetAssayInfo(ctx context.Context, assayName string) (AssayInfo, bool) {
	if assayInfo, ok := ac.getFromMemory(assayName); ok {
		return assayInfo, true
	}

	if ac.store != nil {
		assayInfo, ok, err := ac.store.Get(ctx, assayName)
		if err != nil {
			log.Warn().Err(err).Str("assay", assayName).Msg("read assay info from shared cache failed")
		} else if ok {
			ac.Set([]AssayInfo{assayInfo})
			return assayInfo, true
		}
	}

	assayInfo, err := ac.client.GetAssayInfo(ctx, assayName)
	if err != nil {
		log.Error().Err(err).Str("assay", assayName).Msg(MsgMissingAssayInfo)
		return AssayInfo{}, false
	}
	ac.Set([]AssayInfo{assayInfo})
	if ac.store != nil {
		if err := ac.store.Set(ctx, assayInfo, ac.ttl); err != nil {
			log.Warn().Err(err).Str("assay", assayName).Msg("write assay info to shared cache failed")
		}
	}
	return assayInfo, true
}

func (ac *assayCache) getFromMemory(assayName string) (AssayInfo, bool) {
	ac.mutex.Lock()
	defer ac.mutex.Unlock()
	cached, ok := ac.assays[assayName]
	if !ok || ac.now().After(cached.expiresAt) {
		return AssayInfo{}, false
	}
	return cached.assayInfo, true
}

type redisAssayStore struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisAssayStore(client *redis.Client, applicationName string) AssayStore {
	return &redisAssayStore{client: client, keyPrefix: applicationName + ":assay:"}
}

func NewRedisClient(redisUrl string, redisPort int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", redisUrl, redisPort),
	})
}

func (s *redisAssayStore) Get(ctx context.Context, assayName string) (AssayInfo, bool, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+assayName).Bytes()
	if err == redis.Nil {
		return AssayInfo{}, false, nil
	}
	if err != nil {
		return AssayInfo{}, false, err
	}
	var assayInfo AssayInfo
	if err := json.Unmarshal(data, &assayInfo); err != nil {
		return AssayInfo{}, false, err
	}
	return assayInfo, true, nil
}

func (s *redisAssayStore) Set(ctx context.Context, assayInfo AssayInfo, ttl time.Duration) error {
	data, err := json.Marshal(assayInfo)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.keyPrefix+assayInfo.AssayName, data, ttl).Err()
}
