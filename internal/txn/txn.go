// Package txn описывает выполнение группы изменений в одной транзакции хранилища.
package txn

import "context"

// Transactor выполняет fn в одной транзакции. Хранилища, получающие ctx внутри
// fn, работают в этой транзакции. Если fn вернула ошибку, изменения отменяются.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// None выполняет fn без транзакции. Подходит для хранилищ в памяти, где все
// проверки выполняются до первого изменения.
type None struct{}

// WithinTx вызывает fn с исходным контекстом.
func (None) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Or возвращает t, а если он не задан, None.
func Or(t Transactor) Transactor {
	if t == nil {
		return None{}
	}
	return t
}
