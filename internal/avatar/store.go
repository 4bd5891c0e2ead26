package avatar

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// PathPrefix is where stored previews are served.
const PathPrefix = "/api/v1/avatars/"

// Blob is a chosen avatar file kept for preview.
type Blob struct {
	ContentType string
	Data        []byte
}

// Store keeps avatar previews in memory. A zero TTL keeps them for the
// life of the process.
type Store struct {
	cache *cache.Cache
}

func NewStore(ttl time.Duration) *Store {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = ttl
	}
	return &Store{cache: cache.New(expiration, cleanup)}
}

// Put stores a copy of data and returns the local reference used as the patient's avatar.
func (s *Store) Put(contentType string, data []byte) string {
	id := uuid.New().String()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.cache.Set(id, Blob{ContentType: contentType, Data: buf}, cache.DefaultExpiration)
	return PathPrefix + id
}

// Get returns the blob stored under id.
func (s *Store) Get(id string) (Blob, bool) {
	v, found := s.cache.Get(id)
	if !found {
		return Blob{}, false
	}
	return v.(Blob), true
}

// Len reports the number of stored previews.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}
