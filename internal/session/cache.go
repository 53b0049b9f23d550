package session

import (
	"context"
	"sync"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
)

// MemoryCache keeps the serialized token cache in process memory, so a
// session lasts as long as the process.
type MemoryCache struct {
	mu   sync.Mutex
	data []byte
}

var _ cache.ExportReplace = (*MemoryCache)(nil)

// Replace loads the stored cache into the library.
func (c *MemoryCache) Replace(_ context.Context, u cache.Unmarshaler, _ cache.ReplaceHints) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.data) == 0 {
		return nil
	}
	return u.Unmarshal(c.data)
}

// Export stores the library's cache.
func (c *MemoryCache) Export(_ context.Context, m cache.Marshaler, _ cache.ExportHints) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := m.Marshal()
	if err != nil {
		return err
	}
	c.data = data
	return nil
}

// Len returns the size of the stored cache in bytes.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
