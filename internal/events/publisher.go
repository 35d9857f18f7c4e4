// Package events доставляет события движка внешним индексаторам.
// Доставка асинхронная и никогда не влияет на результат операции.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/yieldmart/internal/model"
)

// Sink принимает события.
type Sink interface {
	Publish(ctx context.Context, e model.Event) error
}

// Publisher ставит события в очередь и раздаёт их приёмникам в фоне.
type Publisher struct {
	logger *zap.Logger
	sinks  []Sink
	queue  chan model.Event
	now    func() time.Time
}

// NewPublisher создаёт издателя с очередью размера buffer.
func NewPublisher(logger *zap.Logger, buffer int, sinks ...Sink) *Publisher {
	return &Publisher{
		logger: logger,
		sinks:  sinks,
		queue:  make(chan model.Event, buffer),
		now:    time.Now,
	}
}

// Emit ставит событие в очередь. При переполненной очереди событие отбрасывается.
func (p *Publisher) Emit(_ context.Context, e model.Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = p.now()
	}

	select {
	case p.queue <- e:
	default:
		p.logger.Warn("event queue is full, event dropped",
			zap.String("id", e.ID), zap.String("kind", string(e.Kind)))
	}
}

// Run раздаёт события до отмены ctx, затем доставляет остаток очереди.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case e := <-p.queue:
			p.deliver(ctx, e)
		}
	}
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		select {
		case e := <-p.queue:
			p.deliver(ctx, e)
		default:
			return
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, e model.Event) {
	for _, s := range p.sinks {
		if err := s.Publish(ctx, e); err != nil {
			p.logger.Warn("event sink error", zap.Error(err),
				zap.String("id", e.ID), zap.String("kind", string(e.Kind)))
		}
	}
}

// LogSink пишет события в журнал.
type LogSink struct {
	Logger *zap.Logger
}

// Publish пишет событие в журнал.
func (s LogSink) Publish(_ context.Context, e model.Event) error {
	s.Logger.Info("engine event",
		zap.String("id", e.ID),
		zap.String("kind", string(e.Kind)),
		zap.String("address", e.Address),
		zap.Uint64("asset_id", e.AssetID),
		zap.Int64("amount", e.Amount),
		zap.String("currency", string(e.Currency)),
		zap.String("region", e.Region),
		zap.Time("created_at", e.CreatedAt),
	)
	return nil
}
