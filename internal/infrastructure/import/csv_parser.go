package csvimport

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/erp/interchange/internal/domain/bulk"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVParser turns delimited text into a header plus a restartable sequence
// of rows. The whole input is held in memory so Reset can rewind it.
type CSVParser struct {
	delimiter rune
	quote     rune
	trimSpace bool
	maxRows   int

	data      string
	headers   []string
	headerMap map[string]int
	bodyStart int
	bodyLine  int

	reader    *recordReader
	totalRows int
}

// ParserOption is a functional option for CSVParser configuration
type ParserOption func(*CSVParser)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ParserOption {
	return func(p *CSVParser) {
		p.delimiter = d
	}
}

// WithQuote sets the quote character (default is double quote)
func WithQuote(q rune) ParserOption {
	return func(p *CSVParser) {
		p.quote = q
	}
}

// WithTrimSpace enables trimming of leading/trailing spaces from fields
func WithTrimSpace(trim bool) ParserOption {
	return func(p *CSVParser) {
		p.trimSpace = trim
	}
}

// WithMaxRows caps the number of data rows; 0 means unlimited
func WithMaxRows(n int) ParserOption {
	return func(p *CSVParser) {
		p.maxRows = n
	}
}

// NewCSVParser reads the input fully and prepares it for parsing.
// A UTF-8 BOM is stripped and non-UTF-8 input is rejected.
func NewCSVParser(r io.Reader, opts ...ParserOption) (*CSVParser, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return ParseFromBytes(raw, opts...)
}

// ParseFromBytes creates a parser from a byte slice
func ParseFromBytes(raw []byte, opts ...ParserOption) (*CSVParser, error) {
	p := &CSVParser{
		delimiter: ',',
		quote:     '"',
		trimSpace: true,
		headerMap: make(map[string]int),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.delimiter == p.quote || p.delimiter == '\n' || p.delimiter == '\r' ||
		p.quote == '\n' || p.quote == '\r' || !utf8.ValidRune(p.delimiter) || !utf8.ValidRune(p.quote) {
		return nil, ErrInvalidDialect
	}

	raw = bytes.TrimPrefix(raw, utf8BOM)
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyFile
	}
	if !utf8.Valid(raw) {
		return nil, ErrInvalidEncoding
	}

	p.data = string(raw)
	return p, nil
}

// ParseHeader reads the first non-blank record as the header row.
// Blank column names become column_<n>; duplicate names are rejected.
func (p *CSVParser) ParseHeader() error {
	rr := newRecordReader(p.data, p.delimiter, p.quote)
	var record []string
	for {
		rec, err := rr.next()
		if err == io.EOF {
			return ErrMissingHeader
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMissingHeader, err)
		}
		if !isBlankRecord(rec.fields) {
			record = rec.fields
			break
		}
	}

	p.headers = make([]string, len(record))
	p.headerMap = make(map[string]int, len(record))
	for i, h := range record {
		name := trimSpaces(h)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		if _, dup := p.headerMap[name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateHeader, name)
		}
		p.headers[i] = name
		p.headerMap[name] = i
	}

	p.bodyStart = rr.pos
	p.bodyLine = rr.line
	p.Reset()
	return nil
}

// Reset rewinds the row sequence to the first data row
func (p *CSVParser) Reset() {
	rr := newRecordReader(p.data, p.delimiter, p.quote)
	rr.pos = p.bodyStart
	rr.line = p.bodyLine
	p.reader = rr
	p.totalRows = 0
}

// Headers returns the parsed header names
func (p *CSVParser) Headers() []string {
	return p.headers
}

// Row represents a parsed CSV row. LineNumber is the physical line the
// record starts on, counted without the header, so the first data line is 1.
// Err is set when the record itself is malformed.
type Row struct {
	LineNumber int
	Data       map[string]string
	RawFields  []string
	Err        *bulk.RowIssue
}

// Get returns the value for a column by header name
func (r *Row) Get(header string) string {
	return r.Data[header]
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.RawFields {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ReadRow returns the next data row, skipping blank lines, or io.EOF.
// A column-count mismatch is reported on the row, not as an error.
func (p *CSVParser) ReadRow() (*Row, error) {
	if p.reader == nil {
		return nil, ErrMissingHeader
	}
	for {
		rec, err := p.reader.next()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err == nil && isBlankRecord(rec.fields) {
			continue
		}

		if p.maxRows > 0 && p.totalRows >= p.maxRows {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManyRows, p.maxRows)
		}
		p.totalRows++

		row := p.buildRow(rec)
		if err != nil {
			row.Err = &bulk.RowIssue{Code: bulk.CodeMalformedRow, Message: err.Error()}
		} else if len(rec.fields) != len(p.headers) {
			row.Err = &bulk.RowIssue{
				Code: bulk.CodeMalformedRow,
				Message: fmt.Sprintf("expected %d columns but found %d",
					len(p.headers), len(rec.fields)),
			}
		}
		return row, nil
	}
}

func (p *CSVParser) buildRow(rec record) *Row {
	row := &Row{
		LineNumber: rec.line - p.headerLines(),
		Data:       make(map[string]string, len(p.headers)),
		RawFields:  rec.fields,
	}
	for i, header := range p.headers {
		if i >= len(rec.fields) {
			break
		}
		value := rec.fields[i]
		if p.trimSpace {
			value = trimSpaces(value)
		}
		row.Data[header] = value
	}
	return row
}

// headerLines is the number of physical lines up to and including the header
func (p *CSVParser) headerLines() int {
	return p.bodyLine - 1
}

func isBlankRecord(fields []string) bool {
	return len(fields) == 1 && strings.TrimSpace(fields[0]) == ""
}

// trimSpaces trims ASCII whitespace from both ends of a string
func trimSpaces(s string) string {
	return strings.TrimFunc(s, isWhitespace)
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
