package events

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelcm/pse-data-bridge/internal/models"
)

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.MappingUpserted(context.Background(), "manual", models.Mapping{MappingID: "c1-manual"}))
}

func TestRedisPublisherFailsWithoutServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	p := NewRedisPublisher(client)
	defer p.Close()

	err := p.MappingUpserted(context.Background(), "match", models.Mapping{MappingID: "c1-k1"})
	assert.Error(t, err)
}

func TestRedisPublisherDeliversEvent(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	p, err := DialRedis(ctx, addr, "", 0)
	require.NoError(t, err)
	defer p.Close()

	sub := p.client.Subscribe(ctx, ChannelMappingUpserted)
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, p.MappingUpserted(ctx, "manual", models.Mapping{MappingID: "c1-manual", ContentID: "c1"}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Contains(t, msg.Payload, `"mappingId":"c1-manual"`)
	assert.Contains(t, msg.Payload, `"trigger":"manual"`)
}
