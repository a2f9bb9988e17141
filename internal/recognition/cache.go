package recognition

import (
	"image"
	"sync"
	"time"

	"github.com/corona10/goimagehash"

	"github.com/GriffinCanCode/league-vision/internal/vision"
)

// Frame cache defaults.
const (
	DefaultMaxHashDistance = 0
	DefaultMaxAge          = time.Second
)

type frameKey struct {
	region vision.Rect
	set    string
	hash   *goimagehash.ImageHash
}

type cachedFrame struct {
	key    frameKey
	result Result
	at     time.Time
}

// FrameCache returns the previous result when the same region shows a
// perceptually identical frame, so static tooltips are not re-recognized.
type FrameCache struct {
	maxDistance int
	maxAge      time.Duration
	now         func() time.Time

	mu   sync.Mutex
	last map[string]cachedFrame
}

// NewFrameCache creates a cache. maxDistance is the Hamming distance between
// perception hashes still treated as the same frame.
func NewFrameCache(maxDistance int, maxAge time.Duration) *FrameCache {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &FrameCache{
		maxDistance: maxDistance,
		maxAge:      maxAge,
		now:         time.Now,
		last:        make(map[string]cachedFrame),
	}
}

func (c *FrameCache) key(img image.Image, region vision.Rect, set string) (frameKey, bool) {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return frameKey{}, false
	}
	return frameKey{region: region, set: set, hash: hash}, true
}

func (c *FrameCache) lookup(k frameKey) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, ok := c.last[k.set]
	if !ok || prev.key.region != k.region || c.now().Sub(prev.at) > c.maxAge {
		return Result{}, false
	}
	dist, err := prev.key.hash.Distance(k.hash)
	if err != nil || dist > c.maxDistance {
		return Result{}, false
	}
	return prev.result, true
}

func (c *FrameCache) store(k frameKey, res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[k.set] = cachedFrame{key: k, result: res, at: c.now()}
}
