// Package registry хранит уровневые доходные и коллекционные активы.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/mmeshcher/yieldmart/internal/authz"
	"github.com/mmeshcher/yieldmart/internal/model"
)

// Authorizer проверяет права вызывающего адреса.
type Authorizer interface {
	Check(res authz.Resource, addr string) error
	IsOwner(addr string) bool
}

// Store хранит активы, шаблоны и коллекционные предметы.
//
// CreateAsset и CreateCollectible назначают новый идентификатор, который никогда
// не используется повторно. CreateCollectible атомарно увеличивает счётчик
// выпуска шаблона и возвращает ErrSupplyExhausted, если тираж выбран.
// UpdateIncomeClaim меняет отметку, только если текущее значение равно from.
type Store interface {
	CreateAsset(ctx context.Context, a model.Asset) (model.Asset, error)
	Asset(ctx context.Context, id uint64) (model.Asset, error)
	AssetsByOwner(ctx context.Context, owner string) ([]model.Asset, error)
	DeleteAsset(ctx context.Context, id uint64) error
	UpdateIncomeClaim(ctx context.Context, id uint64, from, to time.Time) error

	CreateTemplate(ctx context.Context, t model.Template) error
	Template(ctx context.Context, name string) (model.Template, error)
	CreateCollectible(ctx context.Context, c model.Collectible) (model.Collectible, error)
	CollectiblesByOwner(ctx context.Context, owner string) ([]model.Collectible, error)
}

// Registry проверяет права и инварианты активов поверх Store.
type Registry struct {
	auth  Authorizer
	store Store
}

// New создаёт реестр поверх store.
func New(auth Authorizer, store Store) *Registry {
	return &Registry{
		auth:  auth,
		store: store,
	}
}

// MintAsset выпускает новый актив. Характеристики вычисляются из таблицы stats
// и фиксируются на активе в момент выпуска.
func (r *Registry) MintAsset(ctx context.Context, caller, owner string, assetType model.AssetType, level int64, metadataRef string, stats map[model.AssetType]model.BaseStats, now time.Time) (model.Asset, error) {
	if err := r.auth.Check(authz.ResourceMint, caller); err != nil {
		return model.Asset{}, err
	}
	if err := model.ValidateLevel(level); err != nil {
		return model.Asset{}, err
	}
	base, ok := stats[assetType]
	if !ok {
		return model.Asset{}, fmt.Errorf("%w: %s", model.ErrBaseStatsNotConfigured, assetType)
	}

	points, err := model.MulDiv(base.StatusPoints, level, 1)
	if err != nil {
		return model.Asset{}, fmt.Errorf("status points of %s: %w", assetType, err)
	}
	bonus, err := model.MulDiv(base.YieldRateBpsPerLevel, level-1, 1)
	if err != nil {
		return model.Asset{}, fmt.Errorf("yield rate of %s: %w", assetType, err)
	}
	rate, err := model.AddChecked(base.YieldRateBps, bonus)
	if err != nil {
		return model.Asset{}, fmt.Errorf("yield rate of %s: %w", assetType, err)
	}

	a, err := r.store.CreateAsset(ctx, model.Asset{
		Owner:             owner,
		Type:              assetType,
		Level:             level,
		StatusPoints:      points,
		YieldRateBps:      rate,
		MetadataRef:       metadataRef,
		CreatedAt:         now,
		LastIncomeClaimAt: now,
	})
	if err != nil {
		return model.Asset{}, fmt.Errorf("create asset: %w", err)
	}
	return a, nil
}

// BurnAsset удаляет актив и запись о владении.
func (r *Registry) BurnAsset(ctx context.Context, caller string, id uint64) error {
	if err := r.auth.Check(authz.ResourceMint, caller); err != nil {
		return err
	}
	return r.store.DeleteAsset(ctx, id)
}

// Asset возвращает актив по идентификатору.
func (r *Registry) Asset(ctx context.Context, id uint64) (model.Asset, error) {
	return r.store.Asset(ctx, id)
}

// AssetsByOwner возвращает активы владельца по возрастанию идентификатора.
func (r *Registry) AssetsByOwner(ctx context.Context, owner string) ([]model.Asset, error) {
	return r.store.AssetsByOwner(ctx, owner)
}

// AdvanceIncomeClaim переносит отметку последнего получения дохода.
// Отметка не может уйти назад и не может превысить now.
func (r *Registry) AdvanceIncomeClaim(ctx context.Context, id uint64, to, now time.Time) error {
	a, err := r.store.Asset(ctx, id)
	if err != nil {
		return err
	}
	if to.Before(a.LastIncomeClaimAt) || to.After(now) {
		return fmt.Errorf("income claim timestamp %s out of range", to.Format(time.RFC3339))
	}
	return r.store.UpdateIncomeClaim(ctx, id, a.LastIncomeClaimAt, to)
}

// CreateTemplate регистрирует шаблон коллекционного актива. Доступно только владельцу.
func (r *Registry) CreateTemplate(ctx context.Context, caller string, t model.Template) (model.Template, error) {
	if !r.auth.IsOwner(caller) {
		return model.Template{}, fmt.Errorf("%w: only owner can create templates", model.ErrUnauthorized)
	}
	if t.Name == "" || t.MaxSupply <= 0 || t.Price < 0 || t.StatusPoints < 0 {
		return model.Template{}, fmt.Errorf("%w: template %q", model.ErrInvalidAmount, t.Name)
	}

	t.MintedCount = 0
	if err := r.store.CreateTemplate(ctx, t); err != nil {
		return model.Template{}, err
	}
	return t, nil
}

// Template возвращает шаблон по имени.
func (r *Registry) Template(ctx context.Context, name string) (model.Template, error) {
	return r.store.Template(ctx, name)
}

// CheckSupply возвращает ErrSupplyExhausted, если тираж шаблона выбран полностью.
func (r *Registry) CheckSupply(ctx context.Context, name string) error {
	t, err := r.store.Template(ctx, name)
	if err != nil {
		return err
	}
	if t.MintedCount >= t.MaxSupply {
		return fmt.Errorf("%w: %s", model.ErrSupplyExhausted, name)
	}
	return nil
}

// MintCollectible выпускает коллекционный актив по шаблону.
func (r *Registry) MintCollectible(ctx context.Context, caller, owner, templateName string, now time.Time) (model.Collectible, error) {
	if err := r.auth.Check(authz.ResourceMint, caller); err != nil {
		return model.Collectible{}, err
	}

	t, err := r.store.Template(ctx, templateName)
	if err != nil {
		return model.Collectible{}, err
	}

	return r.store.CreateCollectible(ctx, model.Collectible{
		Owner:        owner,
		TemplateName: templateName,
		StatusPoints: t.StatusPoints,
		MintedAt:     now,
	})
}

// CollectiblesByOwner возвращает коллекционные активы владельца в порядке выпуска.
func (r *Registry) CollectiblesByOwner(ctx context.Context, owner string) ([]model.Collectible, error) {
	return r.store.CollectiblesByOwner(ctx, owner)
}
