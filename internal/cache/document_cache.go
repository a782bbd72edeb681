package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"gopherai-docqa/internal/model"
)

// DocumentCache is an in-process cache of completed documents. Completed
// rows never change, so entries are only dropped by expiry.
type DocumentCache struct {
	items *gocache.Cache
}

func NewDocumentCache(ttl, cleanupInterval time.Duration) *DocumentCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &DocumentCache{items: gocache.New(ttl, cleanupInterval)}
}

func (c *DocumentCache) Get(documentID string) (*model.Document, bool) {
	v, ok := c.items.Get(documentID)
	if !ok {
		return nil, false
	}
	doc := v.(model.Document)
	return &doc, true
}

// Put ignores documents that are not completed yet.
func (c *DocumentCache) Put(doc *model.Document) {
	if doc == nil || !doc.Completed() {
		return
	}
	c.items.SetDefault(doc.DocumentID, *doc)
}

func (c *DocumentCache) Len() int {
	return c.items.ItemCount()
}
