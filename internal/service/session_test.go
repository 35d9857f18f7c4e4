package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/yieldmart/internal/identity"
	"github.com/mmeshcher/yieldmart/internal/model"
	"github.com/mmeshcher/yieldmart/internal/token"
)

func TestOpenSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.OpenSession(ctx, "alice", proof("s1")))

	// сессия не расходует nullifier
	_, err := f.svc.Claim(ctx, "alice", "alice", proof("s1"), "")
	require.NoError(t, err)

	// потраченный на получение nullifier не открывает сессию повторно
	require.ErrorIs(t, f.svc.OpenSession(ctx, "mallory", proof("s1")), model.ErrDuplicateProof)

	require.ErrorIs(t, f.svc.OpenSession(ctx, engine, proof("s2")), model.ErrUnauthorized)
	require.ErrorIs(t, f.svc.OpenSession(ctx, owner, proof("s3")), model.ErrUnauthorized)
}

func TestOpenSession_VerifierRejects(t *testing.T) {
	svc, err := New(context.Background(), Deps{
		Owner:     owner,
		Engine:    engine,
		Settings:  testSettings(),
		Verifier:  stubVerifier{valid: false},
		Primary:   token.NewMemoryLedger(),
		Secondary: token.NewMemoryLedger(),
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.OpenSession(context.Background(), "alice", proof("s1")), model.ErrInvalidProof)
}

func TestOpenSession_NoVerifier(t *testing.T) {
	svc, err := New(context.Background(), Deps{
		Owner:     owner,
		Engine:    engine,
		Settings:  testSettings(),
		Primary:   token.NewMemoryLedger(),
		Secondary: token.NewMemoryLedger(),
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.OpenSession(context.Background(), "alice", proof("s1")), identity.ErrVerifierNotConfigured)
}

func TestAuthenticateOwner(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	svc, err := New(context.Background(), Deps{
		Owner:             owner,
		Engine:            engine,
		OwnerPasswordHash: string(hash),
		Settings:          testSettings(),
		Primary:           token.NewMemoryLedger(),
		Secondary:         token.NewMemoryLedger(),
		Now:               func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	addr, err := svc.AuthenticateOwner("correct horse")
	require.NoError(t, err)
	assert.Equal(t, owner, addr)

	_, err = svc.AuthenticateOwner("battery staple")
	require.ErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = svc.AuthenticateOwner("")
	require.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestAuthenticateOwner_DisabledWithoutHash(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AuthenticateOwner("anything")
	require.ErrorIs(t, err, model.ErrInvalidCredentials)
	assert.Equal(t, 1, f.failures.failures["owner_login"])
}
