package importapp

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/erp/interchange/internal/domain/bulk"
	"github.com/erp/interchange/internal/domain/catalog"
	csvexport "github.com/erp/interchange/internal/infrastructure/export"
	csvimport "github.com/erp/interchange/internal/infrastructure/import"
	"github.com/erp/interchange/internal/infrastructure/persistence"
	"github.com/erp/interchange/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByNormalizedName(ctx context.Context, normalizedName string) (*catalog.Product, error) {
	args := m.Called(ctx, normalizedName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Upsert(ctx context.Context, fields catalog.ProductFields) (*catalog.Product, catalog.UpsertOutcome, error) {
	args := m.Called(ctx, fields)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(*catalog.Product), args.Get(1).(catalog.UpsertOutcome), args.Error(2)
}

func (m *MockProductRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

type importFixture struct {
	service   *ImportService
	products  *persistence.GormProductRepository
	templates *persistence.GormMappingTemplateRepository
}

func newImportFixture(t *testing.T, opts ...ImportServiceOption) *importFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	products := persistence.NewGormProductRepository(db)
	templates := persistence.NewGormMappingTemplateRepository(db)
	return &importFixture{
		service:   NewImportService(products, NewMappingResolver(templates), opts...),
		products:  products,
		templates: templates,
	}
}

func upload(data []byte) ImportRequest {
	return ImportRequest{File: bytes.NewReader(data)}
}

func uploadWith(data []byte, mapping string) ImportRequest {
	return ImportRequest{File: bytes.NewReader(data), Mapping: MappingRef{Inline: mapping}}
}

func TestImportService_CommitIsIdempotent(t *testing.T) {
	f := newImportFixture(t)
	ctx := context.Background()
	data := testutil.CSV(
		[]string{"name", "price", "stock", "category"},
		[]string{"Desk Lamp", "19.99", "4", "lighting"},
		[]string{"Oak Table", "250", "1", "furniture"},
		[]string{"Wool Rug", "80.5", "0", "textiles"},
	)

	first, err := f.service.Commit(ctx, upload(data))
	require.NoError(t, err)
	assert.Equal(t, 3, first.Created)
	assert.Equal(t, 0, first.Updated)
	assert.Empty(t, first.Errors)

	second, err := f.service.Commit(ctx, upload(data))
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 3, second.Updated)

	count, err := f.products.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestImportService_RowIsolation(t *testing.T) {
	f := newImportFixture(t)
	ctx := context.Background()
	data := testutil.CSV(
		[]string{"name", "price"},
		[]string{"Good", "10"},
		[]string{"Bad Price", "abc"},
		[]string{"", "5"},
	)

	summary, err := f.service.Commit(ctx, upload(data))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created+summary.Updated)
	assert.Equal(t, 2, summary.Skipped)

	require.Len(t, summary.Errors, 2)
	assert.Equal(t, 2, summary.Errors[0].Line)
	assert.Equal(t, bulk.CodeInvalidPrice, summary.Errors[0].Errors[0].Code)
	assert.Equal(t, 3, summary.Errors[1].Line)
	assert.Equal(t, bulk.CodeMissingName, summary.Errors[1].Errors[0].Code)

	_, err = f.products.FindByNormalizedName(ctx, "good")
	assert.NoError(t, err)
}

func TestImportService_OutOfRangeValuesStayRowErrors(t *testing.T) {
	f := newImportFixture(t)
	ctx := context.Background()
	data := testutil.CSV(
		[]string{"name", "price", "stock"},
		[]string{"Desk Lamp", "19.99", "4"},
		[]string{"Warehouse Pallet", "25", "3000000000"},
		[]string{"Gold Bar", "1e20", "1"},
		[]string{"Fine Print", "0.00001", "1"},
	)

	summary, err := f.service.Commit(ctx, upload(data))
	require.NoError(t, err, "value range problems never abort the commit")
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 3, summary.Skipped)

	require.Len(t, summary.Errors, 3)
	assert.Equal(t, bulk.CodeInvalidStock, summary.Errors[0].Errors[0].Code)
	assert.Equal(t, bulk.CodeInvalidPrice, summary.Errors[1].Errors[0].Code)
	assert.Equal(t, bulk.CodeInvalidPrice, summary.Errors[2].Errors[0].Code)

	count, err := f.products.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestImportService_CommitMergesPresentFields(t *testing.T) {
	f := newImportFixture(t)
	ctx := context.Background()

	_, err := f.service.Commit(ctx, upload(testutil.CSV(
		[]string{"name", "price", "stock", "brand"},
		[]string{"Desk Lamp", "19.99", "4", "Lumo"},
	)))
	require.NoError(t, err)

	summary, err := f.service.Commit(ctx, upload(testutil.CSV(
		[]string{"name", "price"},
		[]string{"  desk   LAMP ", "21"},
	)))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)

	p, err := f.products.FindByNormalizedName(ctx, "desk lamp")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(21).Equal(p.Price))
	assert.Equal(t, 4, p.Stock, "absent columns keep their value")
	assert.Equal(t, "Lumo", p.Brand)
}

func TestImportService_DuplicateKeyWithinFile(t *testing.T) {
	f := newImportFixture(t)
	ctx := context.Background()

	summary, err := f.service.Commit(ctx, upload(testutil.CSV(
		[]string{"name", "price"},
		[]string{"Lamp", "1"},
		[]string{" LAMP", "2"},
	)))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.Updated)

	p, err := f.products.FindByNormalizedName(ctx, "lamp")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2).Equal(p.Price), "later rows win")
}

func TestImportService_Preview(t *testing.T) {
	ctx := context.Background()
	data := testutil.CSV(
		[]string{"title", "cost"},
		[]string{"A", "1"},
		[]string{"B", "-1"},
		[]string{"C", "3"},
	)
	mapping := `{"title":"name","cost":"price","qty":"stock"}`

	t.Run("never touches the catalog", func(t *testing.T) {
		f := newImportFixture(t)
		result, err := f.service.Preview(ctx, uploadWith(data, mapping))
		require.NoError(t, err)

		assert.Equal(t, 3, result.TotalRows)
		assert.Equal(t, 2, result.ValidRows)
		assert.Equal(t, 1, result.ErrorRows)
		assert.False(t, result.Truncated)
		require.Len(t, result.Rows, 3)
		assert.Equal(t, map[string]string{"name": "A", "price": "1"}, result.Rows[0].MappedData)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, 2, result.Errors[0].Line)
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "qty")

		count, err := f.products.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("row echo is capped", func(t *testing.T) {
		f := newImportFixture(t, WithPreviewLimit(2))
		result, err := f.service.Preview(ctx, uploadWith(data, mapping))
		require.NoError(t, err)

		assert.Len(t, result.Rows, 2)
		assert.True(t, result.Truncated)
		assert.Equal(t, 3, result.TotalRows, "totals cover the whole file")
		assert.Len(t, result.Errors, 1)
	})

	t.Run("preview with errors can still be committed", func(t *testing.T) {
		f := newImportFixture(t)
		_, err := f.service.Preview(ctx, uploadWith(data, mapping))
		require.NoError(t, err)

		summary, err := f.service.Commit(ctx, uploadWith(data, mapping))
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Created)
		assert.Equal(t, 1, summary.Skipped)
	})
}

func TestImportService_MappingFromTemplate(t *testing.T) {
	f := newImportFixture(t)
	ctx := context.Background()

	templates := NewTemplateService(f.templates, nil)
	tmpl, err := templates.Create(ctx, "supplier feed", bulk.FieldMapping{
		{Source: "Product", Target: catalog.FieldName},
		{Source: "Cost", Target: catalog.FieldPrice},
	})
	require.NoError(t, err)

	data := testutil.CSV([]string{"Product", "Cost"}, []string{"Vase", "12"})

	for name, ref := range map[string]MappingRef{
		"inline id":   {Inline: tmpl.ID.String()},
		"inline name": {Inline: "supplier feed"},
		"template id": {TemplateID: tmpl.ID.String()},
	} {
		t.Run(name, func(t *testing.T) {
			result, err := f.service.Preview(ctx, ImportRequest{File: bytes.NewReader(data), Mapping: ref})
			require.NoError(t, err)
			assert.Equal(t, 1, result.ValidRows)
		})
	}
}

func TestImportService_FatalErrors(t *testing.T) {
	ctx := context.Background()
	f := newImportFixture(t)

	testCases := []struct {
		name string
		req  ImportRequest
		want error
	}{
		{"empty file", upload(nil), ErrFormat},
		{"header only blank lines", upload([]byte("\n\n")), ErrFormat},
		{"invalid encoding", upload([]byte("name,price\n\xff\xfe,1\n")), ErrFormat},
		{"duplicate header", upload([]byte("name,name\nA,B\n")), ErrFormat},
		{"unreadable", ImportRequest{File: failingReader{}}, ErrIO},
		{"no file", ImportRequest{}, ErrIO},
		{"unknown template", uploadWith([]byte("name,price\nA,1\n"), "2f1c0c4e-0d6b-4d8a-9c51-3f1f2b7a9e10"), bulk.ErrUnknownTemplate},
		{"unknown template name", uploadWith([]byte("name,price\nA,1\n"), "nightly"), bulk.ErrUnknownTemplate},
		{"bad mapping target", uploadWith([]byte("a\n1\n"), `{"a":"colour"}`), bulk.ErrInvalidMapping},
		{"no usable columns", upload([]byte("foo,bar\n1,2\n")), bulk.ErrInvalidMapping},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.Preview(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestImportService_StorageFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProductRepository)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(nil, nil, errors.New("connection refused")).Once()

	service := NewImportService(repo, NewMappingResolver(nil))
	_, err := service.Commit(ctx, upload(testutil.CSV([]string{"name", "price"}, []string{"A", "1"}, []string{"B", "2"})))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Contains(t, err.Error(), "line 1")
	repo.AssertNumberOfCalls(t, "Upsert", 1)
}

func TestImportService_RowLimit(t *testing.T) {
	f := newImportFixture(t, WithProcessor(csvimport.NewImportProcessor(
		csvimport.WithParserOptions(csvimport.WithMaxRows(1)),
	)))

	_, err := f.service.Commit(context.Background(), upload(testutil.CSV(
		[]string{"name", "price"}, []string{"A", "1"}, []string{"B", "2"},
	)))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestImportService_ExportRoundTrip(t *testing.T) {
	f := newImportFixture(t)
	ctx := context.Background()

	_, err := f.service.Commit(ctx, upload([]byte(strings.Join([]string{
		"name,description,price,stock,category,brand,sku,images",
		`Desk Lamp,"Warm light, ""dimmable""",19.99,4,lighting,Lumo,DL-1,a.png|b.png`,
		"Oak Table,,250,1,furniture,,OT-9,",
		`Wool Rug,"Hand woven
in two colours",80.5,0,textiles,Knot,,c.png`,
	}, "\n"))))
	require.NoError(t, err)

	before, err := f.products.FindAll(ctx, catalog.ProductFilter{})
	require.NoError(t, err)

	gen, err := csvexport.NewGenerator()
	require.NoError(t, err)
	exported, err := gen.Generate(before)
	require.NoError(t, err)

	summary, err := f.service.Commit(ctx, upload(exported))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, len(before), summary.Updated)
	assert.Empty(t, summary.Errors)

	after, err := f.products.FindAll(ctx, catalog.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].Name, after[i].Name)
		assert.Equal(t, before[i].Description, after[i].Description)
		assert.True(t, before[i].Price.Equal(after[i].Price), before[i].Name)
		assert.Equal(t, before[i].Stock, after[i].Stock)
		assert.Equal(t, before[i].Category, after[i].Category)
		assert.Equal(t, before[i].Brand, after[i].Brand)
		assert.Equal(t, before[i].SKU, after[i].SKU)
		assert.Equal(t, before[i].Images.String(), after[i].Images.String())
	}
}
