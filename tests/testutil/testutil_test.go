package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	m := NewMockDB(t)
	require.NotNil(t, m.DB)
	m.ExpectationsWereMet(t)
}

func TestNewTestDB(t *testing.T) {
	db := NewTestDB(t)
	for _, table := range []string{"products", "mapping_templates", "export_schedules", "export_runs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestNewTestContext(t *testing.T) {
	tc := NewTestContext(t, nil)
	tc.SetRequestID("req-1")
	assert.Equal(t, "req-1", tc.Context.GetString("X-Request-ID"))

	tc.Context.JSON(http.StatusCreated, gin.H{"success": true})
	assert.Equal(t, http.StatusCreated, tc.ResponseCode())
	assert.JSONEq(t, `{"success":true}`, string(tc.ResponseBody()))
}

func TestNewTestUUID(t *testing.T) {
	assert.Equal(t, NewTestUUID("a"), NewTestUUID("a"))
	assert.NotEqual(t, NewTestUUID("a"), NewTestUUID("b"))
}

func TestCSV(t *testing.T) {
	assert.Equal(t, "name,price\nLamp,10\n", string(CSV([]string{"name", "price"}, []string{"Lamp", "10"})))
}

func TestNewUploadRequest(t *testing.T) {
	req := NewUploadRequest(t, http.MethodPost, "/upload", "p.csv", []byte("name\nLamp\n"), map[string]string{"mapping": "{}"})
	require.NoError(t, req.ParseMultipartForm(1<<20))

	assert.Equal(t, "{}", req.FormValue("mapping"))
	f, header, err := req.FormFile("file")
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "p.csv", header.Filename)
	assert.Equal(t, "name\nLamp\n", string(data))
}

func TestAssertErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	w.WriteHeader(http.StatusConflict)
	_, _ = w.WriteString(`{"success":false,"error":{"code":"ERR_DUPLICATE_NAME"}}`)
	AssertErrorResponse(t, w, http.StatusConflict, "ERR_DUPLICATE_NAME")
}

func TestRequireEventually(t *testing.T) {
	start := time.Now()
	RequireEventually(t, func() bool { return time.Since(start) > 10*time.Millisecond }, time.Second, time.Millisecond)
}
