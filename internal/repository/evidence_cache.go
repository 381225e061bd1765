package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/complyvault/evidence-api/internal/models"
	appErrors "github.com/complyvault/evidence-api/pkg/errors"
)

// EvidenceCache keeps sealed records in Redis. Safe to cache because a sealed
// record never changes except its ledger state; state transitions drop the
// key so the next read repopulates it.
type EvidenceCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewEvidenceCache constructs the cache. A nil client disables caching.
func NewEvidenceCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *EvidenceCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvidenceCache{client: client, ttl: ttl, logger: logger}
}

func (c *EvidenceCache) key(tenantID, evidenceID string) string {
	return fmt.Sprintf("evidence:%s:%s", tenantID, evidenceID)
}

// Get returns the cached sealed record or ErrCacheMiss.
func (c *EvidenceCache) Get(ctx context.Context, tenantID, evidenceID string) (*models.SealedEvidence, error) {
	if c.client == nil {
		return nil, appErrors.ErrCacheMiss
	}
	raw, err := c.client.Get(ctx, c.key(tenantID, evidenceID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get evidence: %w", err)
	}
	var evidence models.SealedEvidence
	if err := json.Unmarshal(raw, &evidence); err != nil {
		return nil, fmt.Errorf("unmarshal cached evidence: %w", err)
	}
	return &evidence, nil
}

// Set stores a sealed record. Failures are logged, not surfaced: the cache is
// an optimization, postgres stays authoritative.
func (c *EvidenceCache) Set(ctx context.Context, evidence *models.SealedEvidence) {
	if c.client == nil || evidence == nil {
		return
	}
	payload, err := json.Marshal(evidence)
	if err != nil {
		c.logger.Warn("failed to marshal evidence for cache", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.key(evidence.TenantID, evidence.ID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to cache evidence", zap.Error(err))
	}
}

// Invalidate drops the cached record after a state transition.
func (c *EvidenceCache) Invalidate(ctx context.Context, tenantID, evidenceID string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, c.key(tenantID, evidenceID)).Err(); err != nil {
		c.logger.Warn("failed to invalidate evidence cache", zap.Error(err))
	}
}
