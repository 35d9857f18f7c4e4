package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/yieldmart/internal/model"
)

func TestRegistry_AuthorizeAndRevoke(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry("owner")

	require.ErrorIs(t, r.Check(ResourceMint, "minter"), model.ErrUnauthorized)

	require.NoError(t, r.Authorize(ctx, "owner", ResourceMint, "minter"))
	require.NoError(t, r.Authorize(ctx, "owner", ResourceMint, "minter"))
	assert.NoError(t, r.Check(ResourceMint, "minter"))

	// список одного ресурса не даёт прав на другой
	assert.ErrorIs(t, r.Check(ResourceIssuance, "minter"), model.ErrUnauthorized)

	require.NoError(t, r.Revoke(ctx, "owner", ResourceMint, "minter"))
	require.NoError(t, r.Revoke(ctx, "owner", ResourceMint, "minter"))
	assert.False(t, r.IsAuthorized(ResourceMint, "minter"))
}

func TestRegistry_OnlyOwnerManages(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry("owner")

	err := r.Authorize(ctx, "intruder", ResourceMint, "intruder")
	require.ErrorIs(t, err, model.ErrUnauthorized)
	assert.False(t, r.IsAuthorized(ResourceMint, "intruder"))

	require.NoError(t, r.Authorize(ctx, "owner", ResourceIssuance, "engine"))
	require.ErrorIs(t, r.Revoke(ctx, "intruder", ResourceIssuance, "engine"), model.ErrUnauthorized)
	assert.True(t, r.IsAuthorized(ResourceIssuance, "engine"))
}

func TestRegistry_UnknownResource(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry("owner")

	err := r.Authorize(ctx, "owner", Resource("treasury"), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrUnauthorized)
}

func TestRegistry_EmptyOwnerNeverMatches(t *testing.T) {
	r := NewRegistry("")
	assert.False(t, r.IsOwner(""))
}

type memoryGrants struct {
	grants []Grant
	seeded bool
	err    error
}

func (m *memoryGrants) SeedGrants(_ context.Context, grants []Grant) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.seeded {
		return false, nil
	}
	m.seeded = true
	m.grants = append(m.grants, grants...)
	return true, nil
}

func (m *memoryGrants) Grants(context.Context) ([]Grant, error) {
	return m.grants, nil
}

func (m *memoryGrants) SaveGrant(_ context.Context, g Grant) error {
	if m.err != nil {
		return m.err
	}
	m.grants = append(m.grants, g)
	return nil
}

func (m *memoryGrants) DeleteGrant(_ context.Context, g Grant) error {
	if m.err != nil {
		return m.err
	}
	for i, cur := range m.grants {
		if cur == g {
			m.grants = append(m.grants[:i], m.grants[i+1:]...)
			break
		}
	}
	return nil
}

func TestLoad_RestoresGrants(t *testing.T) {
	ctx := context.Background()
	store := &memoryGrants{}

	r, err := Load(ctx, "owner", store)
	require.NoError(t, err)
	assert.Zero(t, r.Len())
	require.NoError(t, r.Authorize(ctx, "owner", ResourceMint, "engine"))
	require.NoError(t, r.Authorize(ctx, "owner", ResourceIssuance, "engine"))
	require.NoError(t, r.Revoke(ctx, "owner", ResourceIssuance, "engine"))

	restarted, err := Load(ctx, "owner", store)
	require.NoError(t, err)
	assert.Equal(t, 1, restarted.Len())
	assert.True(t, restarted.IsAuthorized(ResourceMint, "engine"))
	assert.False(t, restarted.IsAuthorized(ResourceIssuance, "engine"))
}

func TestAuthorize_StoreFailureKeepsMemoryUnchanged(t *testing.T) {
	ctx := context.Background()
	store := &memoryGrants{err: errors.New("disk full")}

	r, err := Load(ctx, "owner", store)
	require.NoError(t, err)

	require.Error(t, r.Authorize(ctx, "owner", ResourceMint, "minter"))
	assert.False(t, r.IsAuthorized(ResourceMint, "minter"))
}

func TestLoad_RejectsUnknownResource(t *testing.T) {
	_, err := Load(context.Background(), "owner", &memoryGrants{grants: []Grant{{Resource: "treasury", Address: "x"}}})
	require.Error(t, err)
}

func TestSeed_OnlyOncePerStore(t *testing.T) {
	ctx := context.Background()
	store := &memoryGrants{}
	initial := []Grant{
		{Resource: ResourceMint, Address: "engine"},
		{Resource: ResourceIssuance, Address: "engine"},
	}

	r, err := Load(ctx, "owner", store)
	require.NoError(t, err)
	require.NoError(t, r.Seed(ctx, initial...))
	assert.True(t, r.IsAuthorized(ResourceMint, "engine"))

	require.NoError(t, r.Revoke(ctx, "owner", ResourceMint, "engine"))
	require.NoError(t, r.Revoke(ctx, "owner", ResourceIssuance, "engine"))

	restarted, err := Load(ctx, "owner", store)
	require.NoError(t, err)
	require.NoError(t, restarted.Seed(ctx, initial...))
	assert.Zero(t, restarted.Len())
	assert.False(t, restarted.IsAuthorized(ResourceMint, "engine"))
}

func TestSeed_WithoutStore(t *testing.T) {
	r := NewRegistry("owner")
	require.NoError(t, r.Seed(context.Background(), Grant{Resource: ResourceLedgerWrite, Address: "engine"}))
	assert.True(t, r.IsAuthorized(ResourceLedgerWrite, "engine"))

	err := r.Seed(context.Background(), Grant{Resource: Resource("treasury"), Address: "engine"})
	require.Error(t, err)
}

func TestSeed_StoreFailure(t *testing.T) {
	store := &memoryGrants{err: errors.New("disk full")}
	r, err := Load(context.Background(), "owner", store)
	require.NoError(t, err)

	err = r.Seed(context.Background(), Grant{Resource: ResourceMint, Address: "engine"})
	require.Error(t, err)
	assert.Zero(t, r.Len())
}
