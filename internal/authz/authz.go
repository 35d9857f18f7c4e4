// Package authz реализует реестр разрешений на изменение защищённых ресурсов.
package authz

import (
	"context"
	"fmt"
	"sync"

	"github.com/mmeshcher/yieldmart/internal/model"
)

// Resource обозначает защищённый ресурс со своим списком допущенных адресов.
type Resource string

const (
	// ResourceMint даёт право выпускать активы.
	ResourceMint Resource = "mint"
	// ResourceIssuance даёт право выпускать токены.
	ResourceIssuance Resource = "issuance"
	// ResourceLedgerWrite даёт право изменять журнал покупок.
	ResourceLedgerWrite Resource = "ledger_write"
)

// Valid сообщает, известен ли ресурс.
func (r Resource) Valid() bool {
	switch r {
	case ResourceMint, ResourceIssuance, ResourceLedgerWrite:
		return true
	}
	return false
}

// Grant описывает допуск адреса к ресурсу.
type Grant struct {
	Resource Resource `json:"resource"`
	Address  string   `json:"address"`
}

// Store сохраняет допуски между перезапусками.
type Store interface {
	Grants(ctx context.Context) ([]Grant, error)
	SaveGrant(ctx context.Context, g Grant) error
	DeleteGrant(ctx context.Context, g Grant) error
	// SeedGrants сохраняет начальные допуски, если хранилище ещё ни разу не
	// засеивалось, и сообщает, были ли они сохранены.
	SeedGrants(ctx context.Context, grants []Grant) (bool, error)
}

// Registry хранит списки допущенных адресов, управляемые единственным владельцем.
// Проверки читают копию в памяти, изменения сначала записываются в Store.
type Registry struct {
	mu        sync.RWMutex
	owner     string
	store     Store
	allowlist map[Resource]map[string]struct{}
}

// NewRegistry создаёт реестр с указанным владельцем, хранящий допуски только в памяти.
func NewRegistry(owner string) *Registry {
	return &Registry{
		owner:     owner,
		allowlist: make(map[Resource]map[string]struct{}),
	}
}

// Load создаёт реестр поверх store и восстанавливает сохранённые допуски.
func Load(ctx context.Context, owner string, store Store) (*Registry, error) {
	grants, err := store.Grants(ctx)
	if err != nil {
		return nil, fmt.Errorf("load grants: %w", err)
	}

	r := NewRegistry(owner)
	r.store = store
	for _, g := range grants {
		if !g.Resource.Valid() {
			return nil, fmt.Errorf("stored grant has unknown resource %q", g.Resource)
		}
		r.add(g)
	}
	return r, nil
}

// Owner возвращает адрес владельца.
func (r *Registry) Owner() string {
	return r.owner
}

// IsOwner сообщает, является ли адрес владельцем.
func (r *Registry) IsOwner(addr string) bool {
	return addr != "" && addr == r.owner
}

// Authorize добавляет адрес в список ресурса. Повторный вызов ничего не меняет.
func (r *Registry) Authorize(ctx context.Context, caller string, res Resource, addr string) error {
	if err := r.guard(caller, res); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g := Grant{Resource: res, Address: addr}
	if r.store != nil {
		if err := r.store.SaveGrant(ctx, g); err != nil {
			return fmt.Errorf("save grant: %w", err)
		}
	}
	r.add(g)
	return nil
}

// Revoke удаляет адрес из списка ресурса. Повторный вызов ничего не меняет.
func (r *Registry) Revoke(ctx context.Context, caller string, res Resource, addr string) error {
	if err := r.guard(caller, res); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store != nil {
		if err := r.store.DeleteGrant(ctx, Grant{Resource: res, Address: addr}); err != nil {
			return fmt.Errorf("delete grant: %w", err)
		}
	}
	delete(r.allowlist[res], addr)
	return nil
}

// Seed выдаёт начальные допуски один раз за жизнь хранилища. Допуски, которые
// владелец отозвал позже, после перезапуска не возвращаются. Без хранилища
// допуски выдаются при каждом создании реестра.
func (r *Registry) Seed(ctx context.Context, grants ...Grant) error {
	for _, g := range grants {
		if !g.Resource.Valid() {
			return fmt.Errorf("seed grant has unknown resource %q", g.Resource)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store != nil {
		seeded, err := r.store.SeedGrants(ctx, grants)
		if err != nil {
			return fmt.Errorf("seed grants: %w", err)
		}
		if !seeded {
			return nil
		}
	}
	for _, g := range grants {
		r.add(g)
	}
	return nil
}

// Len возвращает общее число допусков.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, set := range r.allowlist {
		n += len(set)
	}
	return n
}

func (r *Registry) add(g Grant) {
	set, ok := r.allowlist[g.Resource]
	if !ok {
		set = make(map[string]struct{})
		r.allowlist[g.Resource] = set
	}
	set[g.Address] = struct{}{}
}

// Check возвращает ErrUnauthorized, если адрес не допущен к ресурсу.
func (r *Registry) Check(res Resource, addr string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.allowlist[res][addr]; !ok {
		return fmt.Errorf("%w: %s is not allowed to use %s", model.ErrUnauthorized, addr, res)
	}
	return nil
}

// IsAuthorized сообщает, допущен ли адрес к ресурсу.
func (r *Registry) IsAuthorized(res Resource, addr string) bool {
	return r.Check(res, addr) == nil
}

func (r *Registry) guard(caller string, res Resource) error {
	if !r.IsOwner(caller) {
		return fmt.Errorf("%w: only owner can manage allowlists", model.ErrUnauthorized)
	}
	if !res.Valid() {
		return fmt.Errorf("unknown resource %q", res)
	}
	return nil
}
