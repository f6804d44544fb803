package notification

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

type countingChannel struct {
	mu   sync.Mutex
	keys []string
}

func (c *countingChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, key)
	return nil
}

func (c *countingChannel) published() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}

// fakeBroker hands out links whose close notifications the test controls
type fakeBroker struct {
	mu       sync.Mutex
	links    []*countingChannel
	drops    []chan *amqp.Error
	closed   int
	refusing atomic.Bool
}

func (b *fakeBroker) dial() (amqpLink, error) {
	if b.refusing.Load() {
		return amqpLink{}, errors.New("connection refused")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := &countingChannel{}
	drop := make(chan *amqp.Error, 1)
	b.links = append(b.links, ch)
	b.drops = append(b.drops, drop)
	return amqpLink{
		pub:        ch,
		connClosed: drop,
		close: func() {
			b.mu.Lock()
			b.closed++
			b.mu.Unlock()
		},
	}, nil
}

func (b *fakeBroker) dropLatest() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drops[len(b.drops)-1] <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "broker restart"}
}

func (b *fakeBroker) channel(i int) *countingChannel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.links[i]
}

func (b *fakeBroker) dials() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.links)
}

func (b *fakeBroker) closes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func constantBackOff() backoff.BackOff {
	return backoff.NewConstantBackOff(time.Millisecond)
}

func publish(p Publisher) error {
	return p.PublishWithContext(context.Background(), "bidding.events", "OUTBID.u1", false, false, amqp.Publishing{})
}

func TestReconnectingPublisher_InitialDialFailure(t *testing.T) {
	broker := &fakeBroker{}
	broker.refusing.Store(true)

	_, err := newReconnectingPublisher(broker.dial, constantBackOff)
	require.Error(t, err)
}

func TestReconnectingPublisher_RedialsAfterConnectionLoss(t *testing.T) {
	broker := &fakeBroker{}
	p, err := newReconnectingPublisher(broker.dial, constantBackOff)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, publish(p))
	require.Equal(t, 1, broker.channel(0).published())

	broker.refusing.Store(true)
	broker.dropLatest()

	require.Eventually(t, func() bool { return !p.Connected() }, time.Second, time.Millisecond)
	require.ErrorIs(t, publish(p), ErrAMQPUnavailable)

	broker.refusing.Store(false)
	require.Eventually(t, p.Connected, time.Second, time.Millisecond)
	require.Equal(t, 2, broker.dials())
	require.Equal(t, 1, broker.closes())

	require.NoError(t, publish(p))
	require.Equal(t, 1, broker.channel(0).published())
	require.Equal(t, 1, broker.channel(1).published())
}

func TestReconnectingPublisher_SinkSurvivesBrokerRestart(t *testing.T) {
	broker := &fakeBroker{}
	p, err := newReconnectingPublisher(broker.dial, constantBackOff)
	require.NoError(t, err)
	defer p.Close()

	sink := NewAMQPSink(p, "bidding.events")
	for i := 0; i < 3; i++ {
		broker.dropLatest()
		require.Eventually(t, func() bool { return broker.dials() == i+2 && p.Connected() }, time.Second, time.Millisecond)
	}

	require.NoError(t, sink.Notify(context.Background(), "u1", sampleEvent()))
	require.Equal(t, 1, broker.channel(3).published())
}

func TestReconnectingPublisher_CloseStopsRedialing(t *testing.T) {
	broker := &fakeBroker{}
	p, err := newReconnectingPublisher(broker.dial, constantBackOff)
	require.NoError(t, err)

	broker.refusing.Store(true)
	broker.dropLatest()
	require.Eventually(t, func() bool { return !p.Connected() }, time.Second, time.Millisecond)

	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return while redialing")
	}
	require.ErrorIs(t, publish(p), ErrAMQPUnavailable)
}
