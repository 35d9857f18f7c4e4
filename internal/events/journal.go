package events

import (
	"context"
	"sync"

	"github.com/mmeshcher/yieldmart/internal/model"
)

// Journal хранит последние события в памяти процесса. Используется, когда
// журнал в базе данных не настроен.
type Journal struct {
	mu     sync.RWMutex
	limit  int
	events []model.Event
	seen   map[string]struct{}
}

// NewJournal создаёт журнал, хранящий не более limit событий.
func NewJournal(limit int) *Journal {
	return &Journal{
		limit: limit,
		seen:  make(map[string]struct{}),
	}
}

// Publish добавляет событие. Повторное событие с тем же идентификатором игнорируется.
func (j *Journal) Publish(_ context.Context, e model.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, ok := j.seen[e.ID]; ok {
		return nil
	}
	j.seen[e.ID] = struct{}{}
	j.events = append(j.events, e)

	if j.limit > 0 && len(j.events) > j.limit {
		evicted := j.events[0]
		delete(j.seen, evicted.ID)
		j.events = j.events[1:]
	}
	return nil
}

// ListEvents возвращает не более limit последних событий адреса, начиная с новых.
func (j *Journal) ListEvents(_ context.Context, addr string, limit int) ([]model.Event, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var res []model.Event
	for i := len(j.events) - 1; i >= 0 && len(res) < limit; i-- {
		if j.events[i].Address == addr {
			res = append(res, j.events[i])
		}
	}
	return res, nil
}
