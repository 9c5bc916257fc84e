package core

import (
	"container/list"
	"crypto/sha256"
	"sync"
	"time"

	"github.com/elum-utils/toxicity/models"
)

const (
	kib = 1 << 10
	mib = 1 << 20

	// verdictOverhead approximates the fixed part of a stored verdict: the
	// digest, the numeric fields, the expiry and the list element.
	verdictOverhead = sha256.Size + 8 + 8 + 24 + 48
)

// verdictKey identifies one classified input. Texts and images never share a
// key even when their bytes are equal.
type verdictKey struct {
	modality string
	digest   [sha256.Size]byte
}

func newVerdictKey(modality string, input []byte) verdictKey {
	return verdictKey{modality: modality, digest: sha256.Sum256(input)}
}

type cachedVerdict struct {
	key       verdictKey
	verdict   models.Verdict
	expiresAt time.Time
	cost      int64
}

// verdictCost is the budget a verdict takes: the strings it holds plus a
// fixed overhead.
func verdictCost(modality string, v models.Verdict) int64 {
	return int64(len(modality) + len(v.Prediction) + len(v.Model) + verdictOverhead)
}

// verdictCache remembers classifier verdicts by modality and input digest so
// repeated content skips the model service. Entries live for ttl and the
// least recently read ones go first once budget bytes are used.
type verdictCache struct {
	ttl    time.Duration
	budget int64

	mu     sync.Mutex
	used   int64
	byKey  map[verdictKey]*list.Element
	recent *list.List
}

// newVerdictCache returns nil when either limit is not positive. A nil cache
// never hits and ignores writes.
func newVerdictCache(budget int64, ttl time.Duration) *verdictCache {
	if budget <= 0 || ttl <= 0 {
		return nil
	}
	return &verdictCache{
		ttl:    ttl,
		budget: budget,
		byKey:  make(map[verdictKey]*list.Element),
		recent: list.New(),
	}
}

func (c *verdictCache) lookup(modality string, input []byte, now time.Time) (models.Verdict, bool) {
	if c == nil {
		return models.Verdict{}, false
	}
	key := newVerdictKey(modality, input)

	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.byKey[key]
	if !ok {
		return models.Verdict{}, false
	}
	cv := elem.Value.(*cachedVerdict)
	if now.After(cv.expiresAt) {
		c.drop(elem)
		return models.Verdict{}, false
	}
	c.recent.MoveToFront(elem)
	return cv.verdict, true
}

func (c *verdictCache) remember(modality string, input []byte, v models.Verdict, now time.Time) {
	if c == nil {
		return
	}
	cost := verdictCost(modality, v)
	if cost > c.budget {
		return
	}
	key := newVerdictKey(modality, input)

	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.byKey[key]; ok {
		c.drop(elem)
	}
	c.byKey[key] = c.recent.PushFront(&cachedVerdict{
		key:       key,
		verdict:   v,
		expiresAt: now.Add(c.ttl),
		cost:      cost,
	})
	c.used += cost
	for c.used > c.budget {
		c.drop(c.recent.Back())
	}
}

// sweep drops expired verdicts and reports how many went.
func (c *verdictCache) sweep(now time.Time) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	dropped := 0
	for elem := c.recent.Front(); elem != nil; {
		next := elem.Next()
		if now.After(elem.Value.(*cachedVerdict).expiresAt) {
			c.drop(elem)
			dropped++
		}
		elem = next
	}
	return dropped
}

// Len returns the number of cached verdicts.
func (c *verdictCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byKey)
}

func (c *verdictCache) drop(elem *list.Element) {
	cv := c.recent.Remove(elem).(*cachedVerdict)
	delete(c.byKey, cv.key)
	c.used -= cv.cost
}
