package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mmeshcher/yieldmart/internal/model"
)

// MemoryStore хранит активы в памяти процесса.
type MemoryStore struct {
	mu sync.RWMutex

	nextAssetID uint64
	assets      map[uint64]model.Asset
	byOwner     map[string]map[uint64]struct{}

	nextCollectibleID   uint64
	collectibles        map[uint64]model.Collectible
	collectiblesByOwner map[string][]uint64
	templates           map[string]model.Template
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assets:              make(map[uint64]model.Asset),
		byOwner:             make(map[string]map[uint64]struct{}),
		collectibles:        make(map[uint64]model.Collectible),
		collectiblesByOwner: make(map[string][]uint64),
		templates:           make(map[string]model.Template),
	}
}

// CreateAsset сохраняет актив под новым идентификатором.
func (m *MemoryStore) CreateAsset(_ context.Context, a model.Asset) (model.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextAssetID++
	a.ID = m.nextAssetID
	m.assets[a.ID] = a

	set, ok := m.byOwner[a.Owner]
	if !ok {
		set = make(map[uint64]struct{})
		m.byOwner[a.Owner] = set
	}
	set[a.ID] = struct{}{}
	return a, nil
}

// Asset возвращает актив по идентификатору.
func (m *MemoryStore) Asset(_ context.Context, id uint64) (model.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.assets[id]
	if !ok {
		return model.Asset{}, fmt.Errorf("%w: %d", model.ErrAssetNotFound, id)
	}
	return a, nil
}

// AssetsByOwner возвращает активы владельца по возрастанию идентификатора.
func (m *MemoryStore) AssetsByOwner(_ context.Context, owner string) ([]model.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]uint64, 0, len(m.byOwner[owner]))
	for id := range m.byOwner[owner] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	res := make([]model.Asset, 0, len(ids))
	for _, id := range ids {
		res = append(res, m.assets[id])
	}
	return res, nil
}

// DeleteAsset удаляет актив.
func (m *MemoryStore) DeleteAsset(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assets[id]
	if !ok {
		return fmt.Errorf("%w: %d", model.ErrAssetNotFound, id)
	}
	delete(m.assets, id)
	delete(m.byOwner[a.Owner], id)
	if len(m.byOwner[a.Owner]) == 0 {
		delete(m.byOwner, a.Owner)
	}
	return nil
}

// UpdateIncomeClaim переносит отметку получения дохода с from на to.
func (m *MemoryStore) UpdateIncomeClaim(_ context.Context, id uint64, from, to time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assets[id]
	if !ok {
		return fmt.Errorf("%w: %d", model.ErrAssetNotFound, id)
	}
	if !a.LastIncomeClaimAt.Equal(from) {
		return fmt.Errorf("%w: asset %d was claimed concurrently", model.ErrNothingToClaim, id)
	}
	a.LastIncomeClaimAt = to
	m.assets[id] = a
	return nil
}

// CreateTemplate сохраняет шаблон.
func (m *MemoryStore) CreateTemplate(_ context.Context, t model.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.templates[t.Name]; ok {
		return fmt.Errorf("%w: %s", model.ErrTemplateExists, t.Name)
	}
	m.templates[t.Name] = t
	return nil
}

// Template возвращает шаблон по имени.
func (m *MemoryStore) Template(_ context.Context, name string) (model.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.templates[name]
	if !ok {
		return model.Template{}, fmt.Errorf("%w: %s", model.ErrTemplateNotFound, name)
	}
	return t, nil
}

// CreateCollectible выпускает предмет и увеличивает счётчик шаблона.
func (m *MemoryStore) CreateCollectible(_ context.Context, c model.Collectible) (model.Collectible, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.templates[c.TemplateName]
	if !ok {
		return model.Collectible{}, fmt.Errorf("%w: %s", model.ErrTemplateNotFound, c.TemplateName)
	}
	if t.MintedCount >= t.MaxSupply {
		return model.Collectible{}, fmt.Errorf("%w: %s", model.ErrSupplyExhausted, c.TemplateName)
	}
	t.MintedCount++
	m.templates[t.Name] = t

	m.nextCollectibleID++
	c.ID = m.nextCollectibleID
	m.collectibles[c.ID] = c
	m.collectiblesByOwner[c.Owner] = append(m.collectiblesByOwner[c.Owner], c.ID)
	return c, nil
}

// CollectiblesByOwner возвращает предметы владельца в порядке выпуска.
func (m *MemoryStore) CollectiblesByOwner(_ context.Context, owner string) ([]model.Collectible, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make([]model.Collectible, 0, len(m.collectiblesByOwner[owner]))
	for _, id := range m.collectiblesByOwner[owner] {
		res = append(res, m.collectibles[id])
	}
	return res, nil
}
