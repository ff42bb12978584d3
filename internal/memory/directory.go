package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedChatbotDirectory wraps a directory with a read-through TTL cache.
// Display names change rarely and every dispatch needs one, so this spares
// a store lookup per save.
type CachedChatbotDirectory struct {
	next  ChatbotDirectory
	cache *gocache.Cache
}

// NewCachedChatbotDirectory caches lookups from next for ttl.
func NewCachedChatbotDirectory(next ChatbotDirectory, ttl time.Duration) *CachedChatbotDirectory {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedChatbotDirectory{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (d *CachedChatbotDirectory) DisplayName(ctx context.Context, chatbotID string) (string, error) {
	if cached, ok := d.cache.Get(chatbotID); ok {
		return cached.(string), nil
	}
	name, err := d.next.DisplayName(ctx, chatbotID)
	if err != nil {
		return "", err
	}
	d.cache.SetDefault(chatbotID, name)
	return name, nil
}

var _ ChatbotDirectory = (*CachedChatbotDirectory)(nil)
