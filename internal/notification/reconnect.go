package notification

import (
	"context"
	"errors"
	"sync"

	"bidding-engine/utils"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrAMQPUnavailable is returned by publishes made while the broker link is being redialed
var ErrAMQPUnavailable = errors.New("notification: amqp link unavailable")

// amqpLink is one open connection plus its publishing channel
type amqpLink struct {
	pub        Publisher
	connClosed <-chan *amqp.Error
	chanClosed <-chan *amqp.Error
	close      func()
}

type linkDialer func() (amqpLink, error)

// ReconnectingPublisher keeps a channel to the broker open, redialing with
// exponential backoff whenever the connection or channel is closed.
type ReconnectingPublisher struct {
	dial       linkDialer
	newBackOff func() backoff.BackOff

	mu   sync.RWMutex
	link *amqpLink

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReconnectingPublisher dials once and fails fast when the broker is unreachable at startup
func NewReconnectingPublisher(url, exchange string) (*ReconnectingPublisher, error) {
	dial := func() (amqpLink, error) {
		conn, ch, err := DialAMQP(url, exchange)
		if err != nil {
			return amqpLink{}, err
		}
		return amqpLink{
			pub:        ch,
			connClosed: conn.NotifyClose(make(chan *amqp.Error, 1)),
			chanClosed: ch.NotifyClose(make(chan *amqp.Error, 1)),
			close: func() {
				_ = ch.Close()
				_ = conn.Close()
			},
		}, nil
	}
	return newReconnectingPublisher(dial, func() backoff.BackOff { return backoff.NewExponentialBackOff() })
}

func newReconnectingPublisher(dial linkDialer, newBackOff func() backoff.BackOff) (*ReconnectingPublisher, error) {
	link, err := dial()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &ReconnectingPublisher{
		dial:       dial,
		newBackOff: newBackOff,
		link:       &link,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go p.watch()
	return p, nil
}

func (p *ReconnectingPublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	p.mu.RLock()
	link := p.link
	p.mu.RUnlock()
	if link == nil {
		return ErrAMQPUnavailable
	}
	return link.pub.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
}

// Connected reports whether a broker link is currently open
func (p *ReconnectingPublisher) Connected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.link != nil
}

// Close stops the watcher and closes the current link
func (p *ReconnectingPublisher) Close() {
	p.cancel()
	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.link != nil {
		p.link.close()
		p.link = nil
	}
}

func (p *ReconnectingPublisher) watch() {
	defer close(p.done)

	for {
		p.mu.RLock()
		link := p.link
		p.mu.RUnlock()

		var reason *amqp.Error
		select {
		case <-p.ctx.Done():
			return
		case reason = <-link.connClosed:
		case reason = <-link.chanClosed:
		}

		p.mu.Lock()
		p.link = nil
		p.mu.Unlock()
		link.close()

		fields := map[string]any{}
		if reason != nil {
			fields["error"] = reason.Error()
		}
		utils.Warn("amqp link closed, redialing", fields)

		next, err := backoff.Retry(p.ctx, func() (amqpLink, error) {
			l, err := p.dial()
			if err != nil {
				utils.Debug("amqp redial failed", map[string]any{"error": err.Error()})
			}
			return l, err
		}, backoff.WithBackOff(p.newBackOff()), backoff.WithMaxElapsedTime(0))
		if err != nil {
			// only a cancelled context ends the retry loop
			return
		}

		p.mu.Lock()
		p.link = &next
		p.mu.Unlock()
		utils.Info("amqp link restored", nil)
	}
}
