package tokenstore

import (
	"log/slog"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/config"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/redis"
)

// FromConfig assembles the tiered store: the encrypted file when configured,
// over Redis when a client is given, else over process memory.
func FromConfig(cfg config.Config, redisClient *redis.Client, log *slog.Logger) (*Fallback, error) {
	var secure Store
	if s, err := NewSecureFileStore(cfg.TokenStore.SecureFile, cfg.TokenStore.Passphrase); err == nil {
		secure = s
	} else {
		log.Debug("secure token tier not configured", "error", err)
	}

	var fallback Store = NewMemoryStore()
	if redisClient != nil {
		fallback = NewRedisStore(redisClient, cfg.Redis.KeyPrefix)
	}

	return NewFallback(secure, fallback, WithLogger(log))
}
