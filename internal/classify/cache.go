package classify

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes classification results keyed by command line. Command
// lines repeat unchanged across poll cycles, so a small LRU keeps the
// regexes out of the render path.
type Cache struct {
	lru *lru.Cache[string, Target]
}

// NewCache creates a cache holding up to size command lines.
func NewCache(size int) (*Cache, error) {
	c, err := lru.New[string, Target](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create classification cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

// Classify returns the cached classification for command, computing and
// storing it on a miss. The electronHost flag participates in the key since
// it changes the result for flagless commands.
func (c *Cache) Classify(command string, electronHost bool) Target {
	key := command
	if electronHost {
		key = "e\x00" + command
	}
	if t, ok := c.lru.Get(key); ok {
		return t
	}
	t := Classify(command, electronHost)
	c.lru.Add(key, t)
	return t
}
