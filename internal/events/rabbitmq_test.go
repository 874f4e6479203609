package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/illmade-knight/bikepark/pkg/locations"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// The pubsub client starts an opencensus stats worker and bleve starts its
// analysis workers at init; neither is ever stopped.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
		goleak.IgnoreCurrent(),
	)
}

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	declareErr error
	publishErr error
	published  []published
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	if f.declareErr != nil {
		return f.declareErr
	}
	f.declared = append(f.declared, name+"/"+kind)
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestRabbitNotifier_Notify(t *testing.T) {
	// Arrange
	ch := &fakeChannel{}
	n, err := newRabbitNotifier(ch, "bikepark.events", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"bikepark.events/topic"}, ch.declared)

	change := locations.Change{
		Type:       locations.ChangeCancelled,
		Location:   locations.Location{ID: "abc", Endereco: "Rua A", Numero: "10", QtdTotais: 5, QtdReservada: 3},
		OccurredAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	// Act
	require.NoError(t, n.Notify(context.Background(), change))

	// Assert
	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, "bikepark.events", got.exchange)
	assert.Equal(t, "localizacao.cancelled", got.key)
	assert.Equal(t, ContentType, got.msg.ContentType)
	assert.Equal(t, "abc", got.msg.MessageId)

	decoded, err := Decode(got.msg.Body)
	require.NoError(t, err)
	assert.Equal(t, change, decoded)

	require.NoError(t, n.Close())
	assert.True(t, ch.closed)
}

func TestRabbitNotifier_Errors(t *testing.T) {
	_, err := newRabbitNotifier(&fakeChannel{declareErr: errors.New("access refused")}, "x", zerolog.Nop())
	require.Error(t, err)

	n, err := newRabbitNotifier(&fakeChannel{publishErr: errors.New("channel closed")}, "x", zerolog.Nop())
	require.NoError(t, err)
	err = n.Notify(context.Background(), locations.Change{Type: locations.ChangeCreated})
	require.ErrorContains(t, err, "channel closed")
}

func TestDecode_Payload(t *testing.T) {
	change, err := Decode([]byte(`{"type":"localizacao.deleted","localizacao":{"id":"x","endereco":"","numero":"","qtdTotais":0,"qtdReservada":0},"occurredAt":"2024-01-02T03:04:05Z"}`))
	require.NoError(t, err)
	assert.Equal(t, locations.ChangeDeleted, change.Type)
	assert.Equal(t, "x", change.Location.ID)

	_, err = Decode([]byte("not json"))
	require.Error(t, err)
}
