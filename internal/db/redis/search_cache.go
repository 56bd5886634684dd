package redisdb

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	domainrag "github.com/BlacMeW/DataForge-Reader/internal/domain/rag"
	applog "github.com/BlacMeW/DataForge-Reader/internal/platform/log"
)

// SearchCache 检索结果 Redis 缓存
type SearchCache struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
}

// NewSearchCache 创建检索缓存
func NewSearchCache(rdb *redis.Client, ttlSeconds int) *SearchCache {
	ttl := 5 * time.Minute
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	return &SearchCache{
		redis:  rdb,
		ttl:    ttl,
		prefix: "rag:cache:",
	}
}

// Get 从缓存获取检索结果
func (c *SearchCache) Get(ctx context.Context, req *domainrag.SearchRequest) (*domainrag.SearchResult, bool) {
	key := c.cacheKey(req)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var result domainrag.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		applog.Warn("[RAG/Cache] Failed to unmarshal cached result", "error", err)
		return nil, false
	}

	applog.Debug("[RAG/Cache] Hit", "key", key)
	return &result, true
}

// Set 写入检索结果到缓存
func (c *SearchCache) Set(ctx context.Context, req *domainrag.SearchRequest, result *domainrag.SearchResult) {
	key := c.cacheKey(req)
	data, err := json.Marshal(result)
	if err != nil {
		return
	}

	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		applog.Warn("[RAG/Cache] Failed to set cache", "key", key, "error", err)
	}
}

// InvalidateAll 清除所有 RAG 缓存（索引变更后调用）
func (c *SearchCache) InvalidateAll(ctx context.Context) {
	pattern := c.prefix + "*"
	iter := c.redis.Scan(ctx, 0, pattern, 500).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		c.redis.Del(ctx, keys...)
		applog.Info("[RAG/Cache] All cache invalidated", "keys_deleted", len(keys))
	}
}

// cacheKey 生成缓存 key = hash(query + topK + threshold + datasetIDs)
func (c *SearchCache) cacheKey(req *domainrag.SearchRequest) string {
	// 排序 datasetIDs 确保一致性
	ids := make([]string, len(req.DatasetIDs))
	copy(ids, req.DatasetIDs)
	sort.Strings(ids)

	threshold := "default"
	if req.Threshold != nil {
		threshold = fmt.Sprintf("%g", *req.Threshold)
	}

	raw := fmt.Sprintf("%s|%d|%s|%s",
		req.Query,
		req.TopK,
		threshold,
		strings.Join(ids, ","),
	)

	hash := sha256.Sum256([]byte(raw))
	return c.prefix + fmt.Sprintf("%x", hash[:12])
}
