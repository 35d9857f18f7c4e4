package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/yieldmart/internal/identity"
	"github.com/mmeshcher/yieldmart/internal/model"
)

// OpenSession проверяет, что вызывающий владеет адресом: доказательство личности
// должно быть выпущено для signal, равного адресу. Доказательство не расходует
// nullifier, но nullifier, уже потраченный на получение, не принимается.
// Адреса движка и владельца так открыть нельзя.
func (s *Service) OpenSession(ctx context.Context, addr string, proof model.IdentityProof) error {
	if addr == s.engine || s.auth.IsOwner(addr) {
		return s.observe("session", fmt.Errorf("%w: %s cannot open a session with a proof", model.ErrUnauthorized, addr))
	}
	if s.verifier == nil {
		return identity.ErrVerifierNotConfigured
	}

	used, err := s.claims.IsNullifierUsed(ctx, proof.Nullifier)
	if err != nil {
		return fmt.Errorf("check nullifier: %w", err)
	}
	if used {
		return s.observe("session", model.ErrDuplicateProof)
	}

	ok, err := s.verifier.Verify(ctx, proof.Root, proof.Nullifier, addr, proof.Proof, proof.GroupID)
	if err != nil {
		return fmt.Errorf("verify proof: %w", err)
	}
	if !ok {
		return s.observe("session", model.ErrInvalidProof)
	}
	return nil
}

// AuthenticateOwner сверяет пароль с bcrypt-хешем владельца и возвращает адрес
// владельца. Без настроенного хеша вход владельца закрыт.
func (s *Service) AuthenticateOwner(password string) (string, error) {
	if s.ownerHash == "" || password == "" {
		return "", s.observe("owner_login", model.ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.ownerHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", s.observe("owner_login", model.ErrInvalidCredentials)
		}
		return "", fmt.Errorf("compare password: %w", err)
	}
	return s.auth.Owner(), nil
}
