package pipeline

import (
	"crypto/sha256"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hematrace/labxtract/internal/extract"
)

// ResultCache memoizes extraction results per source document so repeated
// submissions of the same bytes never trigger a second provider call.
// It is bounded with least-recently-used eviction and keyed by content
// hash, so a changed file is a different key and staleness by path cannot
// occur.
type ResultCache struct {
	lru *lru.Cache[string, *extract.Result]
}

func NewResultCache(capacity int) (*ResultCache, error) {
	c, err := lru.New[string, *extract.Result](capacity)
	if err != nil {
		return nil, fmt.Errorf("result cache: %w", err)
	}
	return &ResultCache{lru: c}, nil
}

func (c *ResultCache) Get(key string) (*extract.Result, bool) {
	return c.lru.Get(key)
}

func (c *ResultCache) Add(key string, r *extract.Result) {
	c.lru.Add(key, r)
}

func (c *ResultCache) Len() int {
	return c.lru.Len()
}

// ContentHashHex computes SHA-256 of content and returns a hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
