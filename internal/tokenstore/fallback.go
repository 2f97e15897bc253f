package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/logger"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/sentinel"
)

// Fallback layers a preferred secure tier over a general key-value tier.
// Any secure-tier failure other than "not found" routes the operation to the
// fallback tier; callers never see which tier served them.
type Fallback struct {
	secure   Store
	fallback Store
	logger   *slog.Logger
	reads    singleflight.Group
}

type FallbackOption func(*Fallback)

func WithLogger(l *slog.Logger) FallbackOption {
	return func(f *Fallback) {
		f.logger = l
	}
}

// NewFallback builds a tiered store. secure may be nil when the platform has
// no secure storage; fallback is required.
func NewFallback(secure, fallback Store, opts ...FallbackOption) (*Fallback, error) {
	if fallback == nil {
		return nil, errors.New("fallback token store is required")
	}
	f := &Fallback{
		secure:   secure,
		fallback: fallback,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Get reads the secure tier first. A miss there still consults the fallback
// tier, which holds values written while the secure tier was unavailable.
// Concurrent reads of the same key share one lookup.
func (f *Fallback) Get(ctx context.Context, key string) (string, error) {
	v, err, _ := f.reads.Do(key, func() (any, error) {
		return f.get(ctx, key)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (f *Fallback) get(ctx context.Context, key string) (string, error) {
	if f.secure != nil {
		v, err := f.secure.Get(ctx, key)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			f.logger.DebugContext(ctx, "secure token tier unavailable, using fallback",
				"key", key,
				"error", err,
			)
		}
	}
	return f.fallback.Get(ctx, key)
}

func (f *Fallback) Set(ctx context.Context, key, value string) error {
	if f.secure != nil {
		err := f.secure.Set(ctx, key, value)
		if err == nil {
			// Drop any stale copy left in the fallback tier.
			if derr := f.fallback.Delete(ctx, key); derr != nil {
				f.logger.DebugContext(ctx, "failed to clear fallback token copy", "key", key, "error", derr)
			}
			return nil
		}
		f.logger.DebugContext(ctx, "secure token tier unavailable, writing to fallback",
			"key", key,
			"error", err,
		)
	}
	return f.fallback.Set(ctx, key, value)
}

// Delete removes the key from both tiers. A secure-tier failure is tolerated
// once the fallback copy is gone, since reads that miss the secure tier land
// on the fallback. A fallback failure is always returned: Get would still
// serve the stale value from there.
func (f *Fallback) Delete(ctx context.Context, key string) error {
	var secureErr error
	if f.secure != nil {
		secureErr = f.secure.Delete(ctx, key)
	}
	fallbackErr := f.fallback.Delete(ctx, key)

	switch {
	case fallbackErr != nil && secureErr != nil:
		return errors.Join(secureErr, fallbackErr)
	case fallbackErr != nil:
		return fmt.Errorf("delete fallback token copy: %w", fallbackErr)
	case secureErr != nil:
		f.logger.DebugContext(ctx, "secure token tier delete failed", "key", key, "error", secureErr)
	}
	return nil
}
