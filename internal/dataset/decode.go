package dataset

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrEmptyInput is returned when an upload carries no bytes
	ErrEmptyInput = errors.New("empty input")
	// ErrNoHeader is returned when no header row can be found
	ErrNoHeader = errors.New("no header row found")
	// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrInvalidDataURL is returned for malformed data: URLs
	ErrInvalidDataURL = errors.New("invalid data URL")
)

// Format identifies an upload encoding
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// zipMagic prefixes every XLSX (OOXML) file.
var zipMagic = []byte("PK\x03\x04")

// DetectFormat determines the upload format from the file name, falling back to content sniffing.
func DetectFormat(name string, data []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", ".tsv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case "":
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
	}

	if bytes.HasPrefix(data, zipMagic) {
		return FormatXLSX, nil
	}
	return FormatCSV, nil
}

// Decode parses an uploaded file into a dataset named after the file.
func Decode(name string, data []byte) (*Dataset, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyInput)
	}

	format, err := DetectFormat(name, data)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatXLSX:
		return DecodeXLSX(name, bytes.NewReader(data))
	default:
		return DecodeCSV(name, data)
	}
}

// DecodeCSV parses delimited text. UTF-8 is tried first; invalid UTF-8 is re-read as ISO-8859-1.
func DecodeCSV(name string, data []byte) (*Dataset, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyInput)
	}

	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s as ISO-8859-1: %w", name, err)
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: %w", name, ErrNoHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", name, err)
	}

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if blankRecord(rec) {
			continue
		}
		records = append(records, rec)
	}

	return FromRows(name, header, records)
}

// DecodeXLSX reads the first worksheet that has a non-empty header row.
func DecodeXLSX(name string, r io.Reader) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", name, err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheet, name, err)
		}

		start := -1
		for i, row := range rows {
			if !blankRecord(row) {
				start = i
				break
			}
		}
		if start < 0 {
			continue
		}

		var records [][]string
		for _, row := range rows[start+1:] {
			if blankRecord(row) {
				continue
			}
			records = append(records, row)
		}
		return FromRows(name, rows[start], records)
	}

	return nil, fmt.Errorf("%s: %w", name, ErrNoHeader)
}

// DecodeDataURL splits a browser upload payload ("data:<mime>;base64,<data>") and decodes it.
func DecodeDataURL(name, content string) (*Dataset, error) {
	data, err := ParseDataURL(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return Decode(name, data)
}

// ParseDataURL returns the payload bytes of a data: URL
func ParseDataURL(content string) ([]byte, error) {
	meta, payload, found := strings.Cut(content, ",")
	if !found || !strings.HasPrefix(meta, "data:") {
		return nil, ErrInvalidDataURL
	}

	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
		}
		return data, nil
	}

	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return []byte(text), nil
}

// sniffDelimiter picks the candidate delimiter that occurs most often in the first line.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t', '|'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func blankRecord(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
