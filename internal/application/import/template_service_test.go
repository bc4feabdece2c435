package importapp

import (
	"context"
	"testing"

	"github.com/erp/interchange/internal/domain/bulk"
	"github.com/erp/interchange/internal/domain/catalog"
	"github.com/erp/interchange/internal/infrastructure/persistence"
	"github.com/erp/interchange/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTemplateService(t *testing.T) *TemplateService {
	t.Helper()
	s := NewTemplateService(persistence.NewGormMappingTemplateRepository(testutil.NewTestDB(t)), nil)
	s.now = testutil.FixedTime
	return s
}

var feedMapping = bulk.FieldMapping{
	{Source: "Title", Target: catalog.FieldName},
	{Source: "Cost", Target: catalog.FieldPrice},
}

func TestTemplateService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTemplateService(t)

	created, err := s.Create(ctx, "  supplier feed ", feedMapping)
	require.NoError(t, err)
	assert.Equal(t, "supplier feed", created.Name)
	assert.Equal(t, testutil.FixedTime(), created.CreatedAt)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, feedMapping, got.Mapping)

	updated, err := s.Update(ctx, created.ID, "supplier feed v2", bulk.FieldMapping{
		{Source: "Product", Target: catalog.FieldName},
	})
	require.NoError(t, err)
	assert.Equal(t, "supplier feed v2", updated.Name)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Product", list[0].Mapping[0].Source)

	require.NoError(t, s.Delete(ctx, created.ID))
	_, err = s.Get(ctx, created.ID)
	assert.ErrorIs(t, err, bulk.ErrTemplateNotFound)
}

func TestTemplateService_Errors(t *testing.T) {
	ctx := context.Background()
	s := newTemplateService(t)

	first, err := s.Create(ctx, "feed", feedMapping)
	require.NoError(t, err)
	second, err := s.Create(ctx, "other", feedMapping)
	require.NoError(t, err)

	t.Run("duplicate name on create", func(t *testing.T) {
		_, err := s.Create(ctx, "feed", feedMapping)
		assert.ErrorIs(t, err, bulk.ErrDuplicateName)
	})

	t.Run("duplicate name on update", func(t *testing.T) {
		_, err := s.Update(ctx, second.ID, "feed", feedMapping)
		assert.ErrorIs(t, err, bulk.ErrDuplicateName)
	})

	t.Run("renaming to own name is allowed", func(t *testing.T) {
		_, err := s.Update(ctx, first.ID, "feed", feedMapping)
		assert.NoError(t, err)
	})

	t.Run("blank name", func(t *testing.T) {
		_, err := s.Create(ctx, " ", feedMapping)
		assert.ErrorIs(t, err, bulk.ErrInvalidName)
	})

	t.Run("invalid target", func(t *testing.T) {
		_, err := s.Create(ctx, "bad", bulk.FieldMapping{{Source: "x", Target: "colour"}})
		assert.ErrorIs(t, err, bulk.ErrInvalidMapping)
	})

	t.Run("missing template", func(t *testing.T) {
		_, err := s.Update(ctx, uuid.New(), "x", feedMapping)
		assert.ErrorIs(t, err, bulk.ErrTemplateNotFound)

		assert.ErrorIs(t, s.Delete(ctx, uuid.New()), bulk.ErrTemplateNotFound)
	})
}
