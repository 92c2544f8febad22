package parsers

import (
	"context"
	"io"
)

// Row is one data row of a decoded table
type Row struct {
	// Line is the 1-based line in the source file; the header is line 1
	Line  int
	Cells []string
}

// Cell returns the cell at index i, or "" when the row is shorter
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i]
}

// Table is a decoded sheet: the header row plus data rows in file order
type Table struct {
	Header      []string
	Rows        []Row
	TotalRows   int
	SkippedRows int
	Format      string
}

// FileParser is the interface all parsers must implement
type FileParser interface {
	// Parse reads and parses the file from the given path
	Parse(ctx context.Context, filePath string) (*Table, error)

	// ParseStream reads and parses from an io.Reader
	ParseStream(ctx context.Context, reader io.Reader) (*Table, error)

	// SupportedFormats returns the file extensions this parser supports
	SupportedFormats() []string
}

// ParserConfig holds configuration for all parsers
type ParserConfig struct {
	// SkipEmptyRows determines if empty rows should be skipped
	SkipEmptyRows bool

	// TrimWhitespace determines if cell values should be trimmed
	TrimWhitespace bool

	// MaxFileSize is the maximum file size in bytes (0 = unlimited)
	MaxFileSize int64

	// CSVDelimiter is the CSV field separator; 0 sniffs ';' or ',' from the header line
	CSVDelimiter rune

	// SheetName selects the Excel sheet; empty means the first sheet
	SheetName string
}

// DefaultParserConfig returns sensible defaults
func DefaultParserConfig() *ParserConfig {
	return &ParserConfig{
		SkipEmptyRows:  true,
		TrimWhitespace: true,
		MaxFileSize:    50 * 1024 * 1024, // 50 MB
	}
}
