package service

import (
	"context"

	"github.com/mmeshcher/yieldmart/internal/authz"
	"github.com/mmeshcher/yieldmart/internal/model"
)

// Settings возвращает копию текущей конфигурации.
func (s *Service) Settings() model.Settings {
	return s.settings.Snapshot().Clone()
}

// UpdateSettings заменяет конфигурацию целиком. Доступно только владельцу.
func (s *Service) UpdateSettings(ctx context.Context, caller string, next model.Settings) (model.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.settings.Replace(ctx, caller, next)
	return res, s.observe("update_settings", err)
}

// SetPrice задаёт базовую цену типа актива.
func (s *Service) SetPrice(ctx context.Context, caller string, t model.AssetType, p model.BasePrice) (model.Settings, error) {
	return s.updateTable(ctx, "set_price", func() error {
		return s.settings.SetPrice(ctx, caller, t, p)
	})
}

// SetBaseStats задаёт базовые характеристики типа актива. Уже выпущенные активы
// сохраняют характеристики, зафиксированные при выпуске.
func (s *Service) SetBaseStats(ctx context.Context, caller string, t model.AssetType, st model.BaseStats) (model.Settings, error) {
	return s.updateTable(ctx, "set_base_stats", func() error {
		return s.settings.SetBaseStats(ctx, caller, t, st)
	})
}

// SetProofOnly открывает или закрывает тип только для подтверждённых участников.
func (s *Service) SetProofOnly(ctx context.Context, caller string, t model.AssetType, only bool) (model.Settings, error) {
	return s.updateTable(ctx, "set_proof_only", func() error {
		return s.settings.SetProofOnly(ctx, caller, t, only)
	})
}

// SetBuybackBps задаёт долю текущей цены, выплачиваемую при выкупе.
func (s *Service) SetBuybackBps(ctx context.Context, caller string, bps int64) (model.Settings, error) {
	return s.updateTable(ctx, "set_buyback", func() error {
		return s.settings.SetBuybackBps(ctx, caller, bps)
	})
}

// SetExchangeRates задаёт курсы конвертации для обоих направлений.
func (s *Service) SetExchangeRates(ctx context.Context, caller string, rates model.ExchangeRates) (model.Settings, error) {
	return s.updateTable(ctx, "set_exchange_rates", func() error {
		return s.settings.SetExchangeRates(ctx, caller, rates)
	})
}

func (s *Service) updateTable(_ context.Context, operation string, apply func() error) (model.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := apply(); err != nil {
		return model.Settings{}, s.observe(operation, err)
	}
	return s.settings.Snapshot().Clone(), nil
}

// Authorize добавляет адрес в список ресурса.
func (s *Service) Authorize(ctx context.Context, caller string, res authz.Resource, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.observe("authorize", s.auth.Authorize(ctx, caller, res, addr))
}

// Revoke удаляет адрес из списка ресурса.
func (s *Service) Revoke(ctx context.Context, caller string, res authz.Resource, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.observe("revoke", s.auth.Revoke(ctx, caller, res, addr))
}

// CreateTemplate регистрирует шаблон коллекционного актива.
func (s *Service) CreateTemplate(ctx context.Context, caller string, t model.Template) (model.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.assets.CreateTemplate(ctx, caller, t)
	return res, s.observe("create_template", err)
}
