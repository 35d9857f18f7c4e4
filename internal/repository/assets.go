package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/yieldmart/internal/model"
)

// AssetStore хранит доходные активы, шаблоны и коллекционные предметы.
type AssetStore struct {
	repo *PostgresRepository
}

// Assets возвращает хранилище активов.
func (r *PostgresRepository) Assets() *AssetStore {
	return &AssetStore{repo: r}
}

const assetColumns = `id, owner, type, level, status_points, yield_rate_bps, metadata_ref, created_at, last_income_claim_at`

func scanAsset(row pgx.Row) (model.Asset, error) {
	var (
		a         model.Asset
		id        int64
		assetType string
	)
	err := row.Scan(&id, &a.Owner, &assetType, &a.Level, &a.StatusPoints, &a.YieldRateBps, &a.MetadataRef, &a.CreatedAt, &a.LastIncomeClaimAt)
	if err != nil {
		return model.Asset{}, err
	}
	a.ID = uint64(id)
	a.Type = model.AssetType(assetType)
	return a, nil
}

// CreateAsset сохраняет актив. Идентификатор выдаёт последовательность БД.
func (s *AssetStore) CreateAsset(ctx context.Context, a model.Asset) (model.Asset, error) {
	row := s.repo.conn(ctx).QueryRow(ctx,
		`INSERT INTO assets (owner, type, level, status_points, yield_rate_bps, metadata_ref, created_at, last_income_claim_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+assetColumns,
		a.Owner, string(a.Type), a.Level, a.StatusPoints, a.YieldRateBps, a.MetadataRef, a.CreatedAt, a.LastIncomeClaimAt,
	)
	created, err := scanAsset(row)
	if err != nil {
		return model.Asset{}, fmt.Errorf("insert asset: %w", err)
	}
	return created, nil
}

// Asset возвращает актив по идентификатору.
func (s *AssetStore) Asset(ctx context.Context, id uint64) (model.Asset, error) {
	a, err := scanAsset(s.repo.conn(ctx).QueryRow(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE id = $1`, int64(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Asset{}, fmt.Errorf("%w: %d", model.ErrAssetNotFound, id)
		}
		return model.Asset{}, fmt.Errorf("select asset: %w", err)
	}
	return a, nil
}

// AssetsByOwner возвращает активы владельца по возрастанию идентификатора.
func (s *AssetStore) AssetsByOwner(ctx context.Context, owner string) ([]model.Asset, error) {
	rows, err := s.repo.conn(ctx).Query(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE owner = $1 ORDER BY id`, owner)
	if err != nil {
		return nil, fmt.Errorf("select assets: %w", err)
	}
	defer rows.Close()

	res := make([]model.Asset, 0)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		res = append(res, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// DeleteAsset удаляет актив. Удаление отсутствующего актива возвращает ErrAssetNotFound.
func (s *AssetStore) DeleteAsset(ctx context.Context, id uint64) error {
	tag, err := s.repo.conn(ctx).Exec(ctx, `DELETE FROM assets WHERE id = $1`, int64(id))
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", model.ErrAssetNotFound, id)
	}
	return nil
}

// UpdateIncomeClaim переносит отметку получения дохода, если она всё ещё равна from.
func (s *AssetStore) UpdateIncomeClaim(ctx context.Context, id uint64, from, to time.Time) error {
	tag, err := s.repo.conn(ctx).Exec(ctx,
		`UPDATE assets SET last_income_claim_at = $3 WHERE id = $1 AND last_income_claim_at = $2`,
		int64(id), from, to,
	)
	if err != nil {
		return fmt.Errorf("update income claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: asset %d was claimed concurrently", model.ErrNothingToClaim, id)
	}
	return nil
}

// CreateTemplate сохраняет шаблон.
func (s *AssetStore) CreateTemplate(ctx context.Context, t model.Template) error {
	_, err := s.repo.conn(ctx).Exec(ctx,
		`INSERT INTO templates (name, category, rarity, status_points, max_supply, minted_count, price)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.Name, t.Category, t.Rarity, t.StatusPoints, t.MaxSupply, t.MintedCount, t.Price,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", model.ErrTemplateExists, t.Name)
		}
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

// Template возвращает шаблон по имени.
func (s *AssetStore) Template(ctx context.Context, name string) (model.Template, error) {
	t := model.Template{Name: name}
	err := s.repo.conn(ctx).QueryRow(ctx,
		`SELECT category, rarity, status_points, max_supply, minted_count, price FROM templates WHERE name = $1`,
		name,
	).Scan(&t.Category, &t.Rarity, &t.StatusPoints, &t.MaxSupply, &t.MintedCount, &t.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Template{}, fmt.Errorf("%w: %s", model.ErrTemplateNotFound, name)
		}
		return model.Template{}, fmt.Errorf("select template: %w", err)
	}
	return t, nil
}

// CreateCollectible увеличивает счётчик шаблона условным обновлением и
// сохраняет предмет в той же транзакции.
func (s *AssetStore) CreateCollectible(ctx context.Context, c model.Collectible) (model.Collectible, error) {
	err := s.repo.WithinTx(ctx, func(ctx context.Context) error {
		q := s.repo.conn(ctx)

		tag, err := q.Exec(ctx,
			`UPDATE templates SET minted_count = minted_count + 1
			 WHERE name = $1 AND minted_count < max_supply`,
			c.TemplateName,
		)
		if err != nil {
			return fmt.Errorf("reserve supply: %w", err)
		}
		if tag.RowsAffected() == 0 {
			if _, err := s.Template(ctx, c.TemplateName); err != nil {
				return err
			}
			return fmt.Errorf("%w: %s", model.ErrSupplyExhausted, c.TemplateName)
		}

		var id int64
		err = q.QueryRow(ctx,
			`INSERT INTO collectibles (owner, template_name, status_points, minted_at)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, minted_at`,
			c.Owner, c.TemplateName, c.StatusPoints, c.MintedAt,
		).Scan(&id, &c.MintedAt)
		if err != nil {
			return fmt.Errorf("insert collectible: %w", err)
		}
		c.ID = uint64(id)
		return nil
	})
	if err != nil {
		return model.Collectible{}, err
	}
	return c, nil
}

// CollectiblesByOwner возвращает предметы владельца в порядке выпуска.
func (s *AssetStore) CollectiblesByOwner(ctx context.Context, owner string) ([]model.Collectible, error) {
	rows, err := s.repo.conn(ctx).Query(ctx,
		`SELECT id, template_name, status_points, minted_at FROM collectibles WHERE owner = $1 ORDER BY id`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("select collectibles: %w", err)
	}
	defer rows.Close()

	res := make([]model.Collectible, 0)
	for rows.Next() {
		var (
			c  = model.Collectible{Owner: owner}
			id int64
		)
		if err := rows.Scan(&id, &c.TemplateName, &c.StatusPoints, &c.MintedAt); err != nil {
			return nil, fmt.Errorf("scan collectible: %w", err)
		}
		c.ID = uint64(id)
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}
