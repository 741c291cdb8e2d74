package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/atlas-mind/backend/pkg/logger"
)

type Client struct {
	client  *redis.Client
	chatTTL time.Duration
}

// HistoryEntry is one turn of an agent conversation.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func NewClient(host string, port int, password string, db int, chatTTL time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client, chatTTL: chatTTL}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// SetChat caches a composed chat response keyed by the request hash.
func (c *Client) SetChat(ctx context.Context, requestHash string, response interface{}) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	err = c.client.Set(ctx, fmt.Sprintf("chat:cache:%s", requestHash), data, c.chatTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set chat cache: %w", err)
	}

	logger.Debug("Chat response cached", zap.String("request_hash", requestHash))
	return nil
}

func (c *Client) GetChat(ctx context.Context, requestHash string, response interface{}) (bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("chat:cache:%s", requestHash)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get chat cache: %w", err)
	}

	err = json.Unmarshal(data, response)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	logger.Debug("Chat cache hit", zap.String("request_hash", requestHash))
	return true, nil
}

// InvalidateChatCache drops all cached chat responses. Called after an
// upload changes the graph.
func (c *Client) InvalidateChatCache(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "chat:cache:*", 0).Iterator()
	for iter.Next(ctx) {
		err := c.client.Del(ctx, iter.Val()).Err()
		if err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Chat cache invalidated")
	return nil
}

// AppendHistory records one conversation turn for an agent session.
func (c *Client) AppendHistory(ctx context.Context, sessionID string, entry HistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	key := fmt.Sprintf("chat:session:%s", sessionID)
	if err := c.client.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	if err := c.client.Expire(ctx, key, c.chatTTL).Err(); err != nil {
		return fmt.Errorf("failed to refresh history ttl: %w", err)
	}

	return nil
}

func (c *Client) GetHistory(ctx context.Context, sessionID string) ([]HistoryEntry, error) {
	key := fmt.Sprintf("chat:session:%s", sessionID)
	items, err := c.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(items))
	for _, item := range items {
		var entry HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			logger.Warn("Skipping malformed history entry", zap.String("session_id", sessionID), zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (c *Client) ClearHistory(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, fmt.Sprintf("chat:session:%s", sessionID)).Err()
}
