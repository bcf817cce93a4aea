package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gosettle/internal/domain"
)

type fakeChannel struct {
	declared   []string
	kind       string
	confirmed  bool
	published  []amqp091.Publishing
	keys       []string
	publishErr error
	declareErr error
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error {
	if f.declareErr != nil {
		return f.declareErr
	}
	f.declared = append(f.declared, name)
	f.kind = kind
	return nil
}

func (f *fakeChannel) Confirm(noWait bool) error {
	f.confirmed = true
	return nil
}

func (f *fakeChannel) PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) (*amqp091.DeferredConfirmation, error) {
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil, nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestNewPublisherDeclaresTopicExchange(t *testing.T) {
	ch := &fakeChannel{}

	_, err := newPublisher(ch, "gosettle.events", zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, []string{"gosettle.events"}, ch.declared)
	assert.Equal(t, "topic", ch.kind)
	assert.True(t, ch.confirmed)
}

func TestNewPublisherClosesChannelOnDeclareError(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}

	_, err := newPublisher(ch, "gosettle.events", zerolog.Nop())
	require.Error(t, err)
	assert.True(t, ch.closed)
}

func TestPublishRoutesByEventType(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(ch, "gosettle.events", zerolog.Nop())
	require.NoError(t, err)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := &domain.OutboxEvent{
		ID:            "evt-1",
		AggregateID:   "s1",
		AggregateType: domain.AggregateTypeSettlement,
		EventType:     domain.EventTypeSettlementCompleted,
		Payload:       map[string]any{"settlement_id": "s1", "amount": "12.50"},
		CreatedAt:     created,
	}

	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, "settlement.completed", ch.keys[0])
	assert.Equal(t, "evt-1", msg.MessageId)
	assert.Equal(t, amqp091.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)

	var body Message
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	assert.Equal(t, "s1", body.AggregateID)
	assert.Equal(t, "12.50", body.Payload["amount"])
	assert.True(t, created.Equal(body.OccurredAt))
}

func TestPublishWrapsChannelError(t *testing.T) {
	boom := errors.New("channel closed")
	ch := &fakeChannel{}
	p, err := newPublisher(ch, "x", zerolog.Nop())
	require.NoError(t, err)
	ch.publishErr = boom

	err = p.Publish(context.Background(), &domain.OutboxEvent{ID: "evt-1", EventType: "group.created"})
	assert.ErrorIs(t, err, boom)
}
