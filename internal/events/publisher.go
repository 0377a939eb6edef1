// Package events announces mapping changes to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelcm/pse-data-bridge/internal/models"
)

const ChannelMappingUpserted = "events.content_mapping.upserted"

type MappingUpserted struct {
	EventType string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source"`
	Trigger   string         `json:"trigger"`
	Mapping   models.Mapping `json:"mapping"`
}

type Publisher interface {
	MappingUpserted(ctx context.Context, trigger string, m models.Mapping) error
}

// Nop drops every event; used when no broker is configured.
type Nop struct{}

func (Nop) MappingUpserted(context.Context, string, models.Mapping) error { return nil }

type RedisPublisher struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, now: time.Now}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr, password string, db int) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisPublisher(client), nil
}

func (p *RedisPublisher) MappingUpserted(ctx context.Context, trigger string, m models.Mapping) error {
	b, err := json.Marshal(MappingUpserted{
		EventType: "content_mapping.upserted",
		Timestamp: p.now().UTC(),
		Source:    "pse-data-bridge",
		Trigger:   trigger,
		Mapping:   m,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, ChannelMappingUpserted, b).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ChannelMappingUpserted, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error { return p.client.Close() }
