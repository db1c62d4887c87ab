package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/voicepulse/voicepulse-api/internal/emotion"
)

// CachedClassifier memoizes another classifier's results keyed by a content
// hash of the window. Overlapping windows of repeated or re-analyzed audio
// then skip inference entirely.
type CachedClassifier struct {
	inner Classifier
	cache *lru.Cache[string, emotion.Scores]
}

// NewCachedClassifier wraps inner with an LRU cache holding up to size entries.
func NewCachedClassifier(inner Classifier, size int) (*CachedClassifier, error) {
	cache, err := lru.New[string, emotion.Scores](size)
	if err != nil {
		return nil, fmt.Errorf("classifier: create cache: %w", err)
	}
	return &CachedClassifier{inner: inner, cache: cache}, nil
}

// Classify implements Classifier.
func (c *CachedClassifier) Classify(ctx context.Context, samples []float64, sampleRate int) (emotion.Scores, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	key := contentKey(samples, sampleRate)
	if scores, ok := c.cache.Get(key); ok {
		return scores.Clone(), nil
	}

	scores, err := c.inner.Classify(ctx, samples, sampleRate)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, scores.Clone())
	return scores, nil
}

// Len returns the number of cached distributions.
func (c *CachedClassifier) Len() int {
	return c.cache.Len()
}

// contentKey hashes the samples and rate into a cache key.
func contentKey(samples []float64, sampleRate int) string {
	h := sha256.New()
	_ = binary.Write(h, binary.LittleEndian, int64(sampleRate))
	_ = binary.Write(h, binary.LittleEndian, samples)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify interface implementation at compile time.
var _ Classifier = (*CachedClassifier)(nil)
