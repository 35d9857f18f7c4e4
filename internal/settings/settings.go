// Package settings хранит административную конфигурацию экономики.
// Каждое изменение создаёт новый неизменяемый снимок.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/mmeshcher/yieldmart/internal/model"
)

// Persister сохраняет опубликованные снимки между перезапусками.
type Persister interface {
	SaveSettings(ctx context.Context, s model.Settings) error
}

// Store хранит текущий снимок конфигурации. Изменять его может только владелец.
type Store struct {
	owner     string
	persister Persister
	mu        sync.Mutex
	current   atomic.Pointer[model.Settings]
}

// New создаёт хранилище с начальным снимком, которое держит снимки только в памяти.
func New(owner string, initial model.Settings) (*Store, error) {
	if err := Validate(initial); err != nil {
		return nil, err
	}
	s := &Store{owner: owner}
	snap := initial.Clone()
	s.current.Store(&snap)
	return s, nil
}

// NewPersistent создаёт хранилище, которое сохраняет каждый новый снимок через p
// до его публикации.
func NewPersistent(owner string, initial model.Settings, p Persister) (*Store, error) {
	s, err := New(owner, initial)
	if err != nil {
		return nil, err
	}
	s.persister = p
	return s, nil
}

// Snapshot возвращает текущий снимок. Снимок нельзя изменять.
func (s *Store) Snapshot() model.Settings {
	return *s.current.Load()
}

// Update применяет изменение fn к копии текущего снимка и публикует результат.
func (s *Store) Update(ctx context.Context, caller string, fn func(*model.Settings)) (model.Settings, error) {
	if caller == "" || caller != s.owner {
		return model.Settings{}, fmt.Errorf("%w: only owner can change settings", model.ErrUnauthorized)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Load().Clone()
	fn(&next)
	if err := Validate(next); err != nil {
		return model.Settings{}, err
	}
	if s.persister != nil {
		if err := s.persister.SaveSettings(ctx, next); err != nil {
			return model.Settings{}, fmt.Errorf("save settings: %w", err)
		}
	}
	s.current.Store(&next)
	return next, nil
}

// Replace заменяет снимок целиком.
func (s *Store) Replace(ctx context.Context, caller string, next model.Settings) (model.Settings, error) {
	return s.Update(ctx, caller, func(cur *model.Settings) {
		*cur = next.Clone()
	})
}

// SetPrice задаёт базовую цену типа.
func (s *Store) SetPrice(ctx context.Context, caller string, t model.AssetType, p model.BasePrice) error {
	_, err := s.Update(ctx, caller, func(cur *model.Settings) { cur.Prices[t] = p })
	return err
}

// SetBaseStats задаёт базовые характеристики типа.
func (s *Store) SetBaseStats(ctx context.Context, caller string, t model.AssetType, st model.BaseStats) error {
	_, err := s.Update(ctx, caller, func(cur *model.Settings) { cur.BaseStats[t] = st })
	return err
}

// SetProofOnly помечает тип как доступный только подтверждённым участникам.
func (s *Store) SetProofOnly(ctx context.Context, caller string, t model.AssetType, only bool) error {
	_, err := s.Update(ctx, caller, func(cur *model.Settings) {
		if only {
			cur.ProofOnly[t] = true
			return
		}
		delete(cur.ProofOnly, t)
	})
	return err
}

// SetBuybackBps задаёт долю текущей цены, выплачиваемую при выкупе.
func (s *Store) SetBuybackBps(ctx context.Context, caller string, bps int64) error {
	_, err := s.Update(ctx, caller, func(cur *model.Settings) { cur.BuybackBps = bps })
	return err
}

// SetExchangeRates задаёт курсы конвертации.
func (s *Store) SetExchangeRates(ctx context.Context, caller string, rates model.ExchangeRates) error {
	_, err := s.Update(ctx, caller, func(cur *model.Settings) { cur.ExchangeRates = rates })
	return err
}

// Validate проверяет согласованность снимка.
func Validate(s model.Settings) error {
	checkBps := func(name string, v int64) error {
		if v < 0 || v > model.BasisPoints {
			return fmt.Errorf("%w: %s = %d bps", model.ErrInvalidAmount, name, v)
		}
		return nil
	}

	for _, c := range []struct {
		name string
		v    int64
	}{
		{"discount.new_user_bps", s.Discount.NewUserBps},
		{"discount.loyalty_bps", s.Discount.LoyaltyBps},
		{"buyback_bps", s.BuybackBps},
	} {
		if err := checkBps(c.name, c.v); err != nil {
			return err
		}
	}

	// нулевой порог выключает скидку лояльности
	if s.Discount.LoyaltyThreshold < 0 {
		return fmt.Errorf("%w: discount.loyalty_threshold = %d", model.ErrInvalidAmount, s.Discount.LoyaltyThreshold)
	}
	if s.Yield.GlobalBaseRate < 0 || s.Yield.PerDayBonusBps < 0 || s.Yield.MaxHoldingBonusBps < 0 {
		return fmt.Errorf("%w: yield settings must not be negative", model.ErrInvalidAmount)
	}
	if s.Claim.DailyAmount <= 0 || s.Claim.SigningBonus < 0 {
		return fmt.Errorf("%w: claim settings", model.ErrInvalidAmount)
	}
	if s.Claim.Cooldown < model.Day {
		return fmt.Errorf("%w: claim cooldown %s is shorter than a day", model.ErrInvalidAmount, s.Claim.Cooldown)
	}
	for t, p := range s.Prices {
		if p.Primary < 0 || p.Secondary < 0 {
			return fmt.Errorf("%w: price of %s", model.ErrInvalidAmount, t)
		}
	}
	for t, st := range s.BaseStats {
		if st.StatusPoints < 0 || st.YieldRateBps < 0 || st.YieldRateBpsPerLevel < 0 {
			return fmt.Errorf("%w: base stats of %s", model.ErrInvalidAmount, t)
		}
	}
	for name, r := range map[string]model.Rate{
		"primary_to_secondary": s.ExchangeRates.PrimaryToSecondary,
		"secondary_to_primary": s.ExchangeRates.SecondaryToPrimary,
	} {
		if r.Numerator < 0 || r.Denominator < 0 {
			return fmt.Errorf("%w: exchange rate %s", model.ErrInvalidAmount, name)
		}
	}
	return nil
}

// Load читает снимок из JSON-файла поверх значений по умолчанию.
func Load(path string) (model.Settings, error) {
	s := model.DefaultSettings()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.Settings{}, fmt.Errorf("read settings file: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return model.Settings{}, fmt.Errorf("decode settings file: %w", err)
	}

	if s.Prices == nil {
		s.Prices = map[model.AssetType]model.BasePrice{}
	}
	if s.BaseStats == nil {
		s.BaseStats = map[model.AssetType]model.BaseStats{}
	}
	if s.ProofOnly == nil {
		s.ProofOnly = map[model.AssetType]bool{}
	}
	return s, nil
}
