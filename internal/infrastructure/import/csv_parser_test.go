package csvimport

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/erp/interchange/internal/domain/bulk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readAllRows reads all remaining rows
func (p *CSVParser) readAllRows() ([]*Row, error) {
	var rows []*Row
	for {
		row, err := p.ReadRow()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk gone")
}

func TestNewCSVParser(t *testing.T) {
	t.Run("Valid UTF-8 CSV", func(t *testing.T) {
		csv := "name,price,stock\nLamp,10.00,3\nDesk,99,1"
		parser, err := NewCSVParser(strings.NewReader(csv))

		require.NoError(t, err)
		require.NotNil(t, parser)
	})

	t.Run("UTF-8 BOM is stripped", func(t *testing.T) {
		csv := "\xEF\xBB\xBFname,price\nLamp,30"
		parser, err := NewCSVParser(strings.NewReader(csv))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())

		assert.Equal(t, "name", parser.Headers()[0])
	})

	t.Run("Empty file returns error", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader(""))

		assert.Nil(t, parser)
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("Whitespace only file is empty", func(t *testing.T) {
		_, err := NewCSVParser(strings.NewReader("  \n\r\n \n"))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("Invalid encoding", func(t *testing.T) {
		_, err := ParseFromBytes([]byte{'n', 'a', 'm', 'e', '\n', 0xff, 0xfe, ','})
		assert.ErrorIs(t, err, ErrInvalidEncoding)
		assert.True(t, IsFormatError(err))
	})

	t.Run("Unreadable input", func(t *testing.T) {
		_, err := NewCSVParser(failingReader{})
		assert.ErrorIs(t, err, ErrUnreadable)
		assert.False(t, IsFormatError(err))
	})

	t.Run("Invalid dialect", func(t *testing.T) {
		_, err := ParseFromBytes([]byte("a,b"), WithDelimiter('"'))
		assert.ErrorIs(t, err, ErrInvalidDialect)

		_, err = ParseFromBytes([]byte("a,b"), WithQuote('\n'))
		assert.ErrorIs(t, err, ErrInvalidDialect)
	})

	t.Run("Custom delimiter", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("name;price;stock\nLamp;30;1"), WithDelimiter(';'))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())

		assert.Equal(t, []string{"name", "price", "stock"}, parser.Headers())
	})
}

func TestParseHeader(t *testing.T) {
	t.Run("Valid header", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader("sku,name,price\n001,Widget,10.00"))
		require.NoError(t, parser.ParseHeader())

		assert.Equal(t, []string{"sku", "name", "price"}, parser.Headers())
		assert.Contains(t, parser.headerMap, "name")
		assert.NotContains(t, parser.headerMap, "stock")
		assert.Equal(t, 2, parser.headerMap["price"])
	})

	t.Run("Header cells are trimmed", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader(" name , price \nA,1"))
		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, []string{"name", "price"}, parser.Headers())
	})

	t.Run("Blank header cells get positional names", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader("name,,price\nA,x,1"))
		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, []string{"name", "column_2", "price"}, parser.Headers())
	})

	t.Run("Duplicate header is rejected", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader("name,price,name\nA,1,B"))
		err := parser.ParseHeader()
		assert.ErrorIs(t, err, ErrDuplicateHeader)
		assert.True(t, IsFormatError(err))
	})

	t.Run("Leading blank lines are skipped", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader("\n\nname,price\nA,1"))
		require.NoError(t, parser.ParseHeader())

		row, err := parser.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, 1, row.LineNumber)
	})

	t.Run("ReadRow before header", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader("name\nA"))
		_, err := parser.ReadRow()
		assert.ErrorIs(t, err, ErrMissingHeader)
	})
}

func TestReadRow(t *testing.T) {
	t.Run("Reads rows with line numbers excluding the header", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader("name,price\nLamp, 10 \nDesk,20"))
		require.NoError(t, parser.ParseHeader())

		row, err := parser.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, 1, row.LineNumber)
		assert.Equal(t, "Lamp", row.Get("name"))
		assert.Equal(t, "10", row.Get("price"), "values are trimmed by default")
		assert.Nil(t, row.Err)

		row, err = parser.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, 2, row.LineNumber)

		_, err = parser.ReadRow()
		assert.Equal(t, io.EOF, err)
		assert.Equal(t, 2, parser.totalRows)
	})

	t.Run("Blank lines are skipped but still counted for line numbers", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader("name,price\nA,1\n\n   \nB,2\n"))
		require.NoError(t, parser.ParseHeader())

		rows, err := parser.readAllRows()
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, 1, rows[0].LineNumber)
		assert.Equal(t, 4, rows[1].LineNumber)
	})

	t.Run("Column count mismatch is a row error", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader("name,price\nA\nB,2,extra\nC,3"))
		require.NoError(t, parser.ParseHeader())

		rows, err := parser.readAllRows()
		require.NoError(t, err)
		require.Len(t, rows, 3)

		require.NotNil(t, rows[0].Err)
		assert.Equal(t, bulk.CodeMalformedRow, rows[0].Err.Code)
		assert.Contains(t, rows[0].Err.Message, "expected 2 columns but found 1")
		require.NotNil(t, rows[1].Err)
		assert.Nil(t, rows[2].Err)
		assert.Equal(t, "C", rows[2].Get("name"))
	})

	t.Run("Unterminated quote is a row error", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader("name,price\nA,\"1\nB,2"))
		require.NoError(t, parser.ParseHeader())

		row, err := parser.ReadRow()
		require.NoError(t, err)
		require.NotNil(t, row.Err)
		assert.Equal(t, bulk.CodeMalformedRow, row.Err.Code)

		_, err = parser.ReadRow()
		assert.Equal(t, io.EOF, err)
	})

	t.Run("CRLF line endings", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader("name,price\r\nA,1\r\nB,2\r\n"))
		require.NoError(t, parser.ParseHeader())

		rows, err := parser.readAllRows()
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "1", rows[0].Get("price"))
		assert.Equal(t, 2, rows[1].LineNumber)
	})

	t.Run("Max rows exceeded", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader("name\nA\nB\nC"), WithMaxRows(2))
		require.NoError(t, parser.ParseHeader())

		rows, err := parser.readAllRows()
		assert.ErrorIs(t, err, ErrTooManyRows)
		assert.Len(t, rows, 2)
	})

	t.Run("Trim disabled keeps spaces", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader("name\n  A  "), WithTrimSpace(false))
		require.NoError(t, parser.ParseHeader())

		row, err := parser.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, "  A  ", row.Get("name"))
	})

	t.Run("IsEmpty", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader("name,price\n , "))
		require.NoError(t, parser.ParseHeader())

		row, err := parser.ReadRow()
		require.NoError(t, err)
		assert.True(t, row.IsEmpty())
	})
}

func TestReset(t *testing.T) {
	parser, _ := NewCSVParser(strings.NewReader("name,price\nA,1\nB,2"))
	require.NoError(t, parser.ParseHeader())

	first, err := parser.readAllRows()
	require.NoError(t, err)

	parser.Reset()
	assert.Equal(t, 0, parser.totalRows)

	second, err := parser.readAllRows()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestQuotedFields(t *testing.T) {
	t.Run("Embedded delimiters and doubled quotes", func(t *testing.T) {
		csv := "name,description\n\"Lamp, desk\",\"The \"\"best\"\" lamp\""
		parser, _ := NewCSVParser(strings.NewReader(csv))
		require.NoError(t, parser.ParseHeader())

		row, err := parser.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, "Lamp, desk", row.Get("name"))
		assert.Equal(t, `The "best" lamp`, row.Get("description"))
	})

	t.Run("Custom quote character", func(t *testing.T) {
		csv := "name,description\n'a,b','it''s'"
		parser, _ := NewCSVParser(strings.NewReader(csv), WithQuote('\''))
		require.NoError(t, parser.ParseHeader())

		row, err := parser.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, "a,b", row.Get("name"))
		assert.Equal(t, "it's", row.Get("description"))
	})

	t.Run("Quote inside unquoted field is literal", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader("name,price\n12\" pipe,5"))
		require.NoError(t, parser.ParseHeader())

		row, err := parser.ReadRow()
		require.NoError(t, err)
		assert.Nil(t, row.Err)
		assert.Equal(t, `12" pipe`, row.Get("name"))
	})
}

func TestMultilineFields(t *testing.T) {
	csv := "name,description\nLamp,\"line one\nline two\"\nDesk,plain"
	parser, _ := NewCSVParser(strings.NewReader(csv))
	require.NoError(t, parser.ParseHeader())

	rows, err := parser.readAllRows()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "line one\nline two", rows[0].Get("description"))
	assert.Equal(t, 1, rows[0].LineNumber)
	assert.Equal(t, 3, rows[1].LineNumber, "line numbers follow physical lines")
}
