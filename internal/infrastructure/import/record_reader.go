package csvimport

import (
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

var errUnterminatedQuote = errors.New("quoted field is not terminated")

// record is one logical CSV record and the physical line it starts on
type record struct {
	fields []string
	line   int
}

// recordReader tokenizes delimited text with a configurable quote rune.
// Quoted fields may contain delimiters, newlines and doubled quotes.
// A quote inside an unquoted field is taken literally.
type recordReader struct {
	data  string
	pos   int
	line  int
	delim rune
	quote rune
}

func newRecordReader(data string, delim, quote rune) *recordReader {
	return &recordReader{data: data, line: 1, delim: delim, quote: quote}
}

// next returns the following record. On an unterminated quote it returns the
// fields read so far together with errUnterminatedQuote.
func (r *recordReader) next() (record, error) {
	if r.pos >= len(r.data) {
		return record{}, io.EOF
	}

	rec := record{line: r.line}
	var field strings.Builder
	inQuotes := false
	fieldStart := true

	for {
		if r.pos >= len(r.data) {
			rec.fields = append(rec.fields, field.String())
			if inQuotes {
				return rec, errUnterminatedQuote
			}
			return rec, nil
		}

		c, size := utf8.DecodeRuneInString(r.data[r.pos:])

		if inQuotes {
			if c == r.quote {
				if nc, nsize := r.peek(size); nc == r.quote {
					field.WriteRune(r.quote)
					r.pos += size + nsize
					continue
				}
				inQuotes = false
				r.pos += size
				continue
			}
			if c == '\n' {
				r.line++
			}
			field.WriteRune(c)
			r.pos += size
			continue
		}

		switch {
		case c == r.quote && fieldStart:
			inQuotes = true
			fieldStart = false
			r.pos += size
		case c == r.delim:
			rec.fields = append(rec.fields, field.String())
			field.Reset()
			fieldStart = true
			r.pos += size
		case c == '\r' || c == '\n':
			r.pos += size
			if c == '\r' {
				if nc, nsize := r.peek(0); nc == '\n' {
					r.pos += nsize
				}
			}
			r.line++
			rec.fields = append(rec.fields, field.String())
			return rec, nil
		default:
			field.WriteRune(c)
			fieldStart = false
			r.pos += size
		}
	}
}

// peek decodes the rune that follows the current position plus offset
func (r *recordReader) peek(offset int) (rune, int) {
	if r.pos+offset >= len(r.data) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(r.data[r.pos+offset:])
}
