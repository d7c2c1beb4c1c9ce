package documents

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "documents_cache_hits_total",
		Help: "Document lookups served from the read cache.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "documents_cache_misses_total",
		Help: "Document lookups that fell through to the repository.",
	})
)

// cache is a per-process LRU of saved documents keyed by id.
type cache struct {
	lru *expirable.LRU[string, Document]
}

func newCache(size int, ttl time.Duration) *cache {
	if size <= 0 {
		return nil
	}
	return &cache{lru: expirable.NewLRU[string, Document](size, nil, ttl)}
}

func (c *cache) get(id string) (Document, bool) {
	if c == nil {
		return Document{}, false
	}
	doc, ok := c.lru.Get(id)
	if ok {
		cacheHitsTotal.Inc()
		return cloneDocument(doc), true
	}
	cacheMissesTotal.Inc()
	return Document{}, false
}

func (c *cache) add(doc Document) {
	if c == nil {
		return
	}
	c.lru.Add(doc.ID, cloneDocument(doc))
}
