package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/interchange/internal/domain/bulk"
	"github.com/erp/interchange/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormMappingTemplateRepository(t *testing.T) {
	repo := NewGormMappingTemplateRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mapping := bulk.FieldMapping{
		{Source: "Title", Target: catalog.FieldName},
		{Source: "Cost", Target: catalog.FieldPrice},
		{Source: "Pics", Target: catalog.FieldImages},
	}
	supplier, err := bulk.NewMappingTemplate("Supplier A", mapping, now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, supplier))

	t.Run("round trips the mapping in order", func(t *testing.T) {
		found, err := repo.FindByID(ctx, supplier.ID)
		require.NoError(t, err)
		assert.Equal(t, mapping, found.Mapping)

		byName, err := repo.FindByName(ctx, "Supplier A")
		require.NoError(t, err)
		assert.Equal(t, supplier.ID, byName.ID)
	})

	t.Run("duplicate name", func(t *testing.T) {
		dup, err := bulk.NewMappingTemplate("Supplier A", mapping, now)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Create(ctx, dup), bulk.ErrDuplicateName)
	})

	t.Run("update keeps identity", func(t *testing.T) {
		require.NoError(t, supplier.Update("Supplier A (v2)", mapping[:2], now.Add(time.Hour)))
		require.NoError(t, repo.Update(ctx, supplier))

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "Supplier A (v2)", all[0].Name)
		assert.Len(t, all[0].Mapping, 2)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, supplier.ID))
		_, err := repo.FindByID(ctx, supplier.ID)
		assert.ErrorIs(t, err, bulk.ErrTemplateNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, uuid.New()), bulk.ErrTemplateNotFound)

		require.NoError(t, supplier.Update("Supplier A (v3)", mapping, now.Add(2*time.Hour)))
		assert.ErrorIs(t, repo.Update(ctx, supplier), bulk.ErrTemplateNotFound)
		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}
