package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticStoreGet(t *testing.T) {
	store := NewStaticStore(SeedProjects())
	ctx := context.Background()

	t.Run("known id", func(t *testing.T) {
		p, err := store.Get(ctx, "sama")
		require.NoError(t, err)
		assert.Equal(t, "SAMA", p.Name)
		assert.Equal(t, "development", p.DashboardStatus)
	})

	t.Run("lookup is case-insensitive", func(t *testing.T) {
		p, err := store.Get(ctx, "JAMIAT")
		require.NoError(t, err)
		assert.Equal(t, "Jamiat", p.Name)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := store.Get(ctx, "asteroid")
		var nf *ErrNotFound
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, "asteroid", nf.ID)
	})

	t.Run("returned project is a copy", func(t *testing.T) {
		p, err := store.Get(ctx, "safe")
		require.NoError(t, err)
		p.Cost = "$999/mo"

		fresh, err := store.Get(ctx, "safe")
		require.NoError(t, err)
		assert.Equal(t, "$20/mo", fresh.Cost)
	})
}

func TestStaticStoreListOrder(t *testing.T) {
	store := NewStaticStore(SeedProjects())
	projects, err := store.List(context.Background())
	require.NoError(t, err)

	ids := make([]string, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"jamiat", "sama", "safe", "next", "hamqadam"}, ids)
	assert.Equal(t, ids, store.IDs())
}

func TestCostDollars(t *testing.T) {
	t.Run("seed costs parse and total", func(t *testing.T) {
		var total float64
		for _, p := range SeedProjects() {
			v, err := p.CostDollars()
			require.NoError(t, err)
			total += v
		}
		assert.Equal(t, 125.0, total)
	})

	t.Run("unparsable cost", func(t *testing.T) {
		p := Project{ID: "x", Cost: "twenty bucks"}
		_, err := p.CostDollars()
		assert.Error(t, err)
	})
}
