package parsers

import (
	"context"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hmreg/catalog-reconciler/internal/core/services/normalizer"
	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

// ParserFactory creates the appropriate parser based on file extension
type ParserFactory struct {
	config  *ParserConfig
	parsers map[string]FileParser
}

// NewParserFactory creates a new parser factory with all built-in parsers
func NewParserFactory(config *ParserConfig) *ParserFactory {
	if config == nil {
		config = DefaultParserConfig()
	}

	factory := &ParserFactory{
		config:  config,
		parsers: make(map[string]FileParser),
	}

	factory.RegisterParser(NewCSVParser(config))
	factory.RegisterParser(NewExcelParser(config))

	return factory
}

// RegisterParser registers a custom parser
func (f *ParserFactory) RegisterParser(parser FileParser) {
	for _, ext := range parser.SupportedFormats() {
		f.parsers[normalizeExt(ext)] = parser
	}
}

// GetParser returns the appropriate parser for a file extension
func (f *ParserFactory) GetParser(fileExt string) (FileParser, error) {
	parser, exists := f.parsers[normalizeExt(fileExt)]
	if !exists {
		return nil, apperrors.UnsupportedFormat(fileExt)
	}
	return parser, nil
}

// ParseFile selects a parser by extension and parses the file
func (f *ParserFactory) ParseFile(ctx context.Context, filePath string) (*Table, error) {
	parser, err := f.GetParser(filepath.Ext(filePath))
	if err != nil {
		return nil, err
	}
	return parser.Parse(ctx, filePath)
}

// SupportedFormats returns all supported file extensions, sorted
func (f *ParserFactory) SupportedFormats() []string {
	formats := make([]string, 0, len(f.parsers))
	for ext := range f.parsers {
		formats = append(formats, ext)
	}
	sort.Strings(formats)
	return formats
}

// IsSupported checks if a file extension is supported
func (f *ParserFactory) IsSupported(fileExt string) bool {
	_, exists := f.parsers[normalizeExt(fileExt)]
	return exists
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// ReadCatalog parses a catalog stream, picking the parser from filename, and
// maps it to raw rows through the catalog header
func (f *ParserFactory) ReadCatalog(ctx context.Context, filename string, reader io.Reader) ([]normalizer.RawRow, error) {
	parser, err := f.GetParser(filepath.Ext(filename))
	if err != nil {
		return nil, err
	}
	table, err := parser.ParseStream(ctx, reader)
	if err != nil {
		return nil, err
	}
	index, err := DiscoverColumns(table.Header, CatalogColumns)
	if err != nil {
		return nil, err
	}
	return ToRawRows(table, index), nil
}
