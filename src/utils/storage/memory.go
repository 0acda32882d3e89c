package storage

import (
	"context"
	"fmt"
	"sync"
)

// In-memory ArtifactStore used in tests
type MemoryStore struct {
	mtx     sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (self *MemoryStore) Put(ctx context.Context, bucket, key, contentType string, data []byte) (url string, err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	self.objects[bucket+"/"+key] = stored
	self.types[bucket+"/"+key] = contentType

	return self.URL(bucket, key), nil
}

func (self *MemoryStore) URL(bucket, key string) string {
	return fmt.Sprintf("memory://%s/%s", bucket, key)
}

// Get returns a stored object, test helper
func (self *MemoryStore) Get(bucket, key string) (data []byte, ok bool) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	data, ok = self.objects[bucket+"/"+key]
	return
}

// ContentType returns the content type an object was stored with
func (self *MemoryStore) ContentType(bucket, key string) string {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return self.types[bucket+"/"+key]
}
