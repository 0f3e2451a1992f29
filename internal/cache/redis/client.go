package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vc-scout/backend/internal/enrichment"
	"github.com/vc-scout/backend/internal/storage/models"
	"github.com/vc-scout/backend/pkg/logger"
)

const keyPrefix = "vcscout"

// Client is an enrichment.Store shared between API instances. Each user's
// results live in one hash keyed by company id; replacements are announced on
// a per-user channel.
type Client struct {
	client *redis.Client
}

var _ enrichment.Store = (*Client)(nil)

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func resultsKey(owner string) string {
	return fmt.Sprintf("%s:enrichment:%s", keyPrefix, owner)
}

func updatesChannel(owner string) string {
	return fmt.Sprintf("%s:enrichment-updates:%s", keyPrefix, owner)
}

func (c *Client) Get(ctx context.Context, owner, companyID string) (*models.EnrichmentResult, error) {
	data, err := c.client.HGet(ctx, resultsKey(owner), companyID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrichment: %w", err)
	}

	var result models.EnrichmentResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal enrichment: %w", err)
	}
	return &result, nil
}

// Set writes the result and publishes it in one MULTI/EXEC.
func (c *Client) Set(ctx context.Context, owner string, result *models.EnrichmentResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal enrichment: %w", err)
	}
	update, err := json.Marshal(enrichment.Update{UserID: owner, Result: result})
	if err != nil {
		return fmt.Errorf("failed to marshal enrichment update: %w", err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, resultsKey(owner), result.CompanyID, data)
		pipe.Publish(ctx, updatesChannel(owner), update)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set enrichment: %w", err)
	}

	logger.Debug("Enrichment cached",
		zap.String("user_id", owner),
		zap.String("company_id", result.CompanyID),
	)
	return nil
}

func (c *Client) All(ctx context.Context, owner string) (map[string]*models.EnrichmentResult, error) {
	fields, err := c.client.HGetAll(ctx, resultsKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list enrichments: %w", err)
	}

	out := make(map[string]*models.EnrichmentResult, len(fields))
	for companyID, data := range fields {
		var result models.EnrichmentResult
		if err := json.Unmarshal([]byte(data), &result); err != nil {
			logger.Warn("Skipping unreadable enrichment",
				zap.String("user_id", owner),
				zap.String("company_id", companyID),
				zap.Error(err),
			)
			continue
		}
		out[companyID] = &result
	}
	return out, nil
}

func (c *Client) Subscribe(ctx context.Context, owner string) (<-chan enrichment.Update, error) {
	pubsub := c.client.Subscribe(ctx, updatesChannel(owner))
	// Wait for the subscription confirmation so no publish is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to enrichment updates: %w", err)
	}

	out := make(chan enrichment.Update, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var update enrichment.Update
				if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
					logger.Warn("Dropping malformed enrichment update", zap.Error(err))
					continue
				}
				select {
				case out <- update:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
