package parsers

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

const sniffSize = 64 * 1024

// CSVParser parses CSV files
type CSVParser struct {
	config *ParserConfig
}

// NewCSVParser creates a new CSV parser
func NewCSVParser(config *ParserConfig) *CSVParser {
	if config == nil {
		config = DefaultParserConfig()
	}
	return &CSVParser{
		config: config,
	}
}

// Parse reads and parses a CSV file from disk
func (p *CSVParser) Parse(ctx context.Context, filePath string) (*Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	if err := checkSize(file, p.config.MaxFileSize); err != nil {
		return nil, err
	}

	return p.ParseStream(ctx, file)
}

// ParseStream reads and parses CSV data from an io.Reader
func (p *CSVParser) ParseStream(ctx context.Context, reader io.Reader) (*Table, error) {
	br := decodeLegacy(bufio.NewReaderSize(reader, sniffSize))

	delimiter := p.config.CSVDelimiter
	if delimiter == 0 {
		firstLine, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read CSV header: %w", err)
		}
		delimiter = sniffDelimiter(firstLine)
		reader = io.MultiReader(strings.NewReader(firstLine), br)
	} else {
		reader = br
	}

	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.TrimLeadingSpace = p.config.TrimWhitespace
	csvReader.FieldsPerRecord = -1 // Allow variable number of fields per record
	csvReader.LazyQuotes = true

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	if p.config.TrimWhitespace {
		trimAll(header)
	}

	table := &Table{Header: header, Format: "CSV"}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		cells, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		table.TotalRows++
		if err != nil {
			// Skip malformed rows but continue parsing
			table.SkippedRows++
			continue
		}
		line, _ := csvReader.FieldPos(0)

		if p.config.SkipEmptyRows && isEmptyRow(cells) {
			table.SkippedRows++
			continue
		}
		if p.config.TrimWhitespace {
			trimAll(cells)
		}

		table.Rows = append(table.Rows, Row{Line: line, Cells: cells})
	}

	return table, nil
}

// SupportedFormats returns the file extensions this parser supports
func (p *CSVParser) SupportedFormats() []string {
	return []string{".csv"}
}

// sniffDelimiter prefers ';' when the header uses it more than ','
// decodeLegacy wraps the stream in a Windows-1252 decoder when its first chunk is
// not valid UTF-8. Spreadsheet CSV exports on Norwegian desktops use that charset.
func decodeLegacy(br *bufio.Reader) *bufio.Reader {
	head, _ := br.Peek(sniffSize)
	if len(head) == sniffSize {
		// drop the last rune, which may straddle the peek boundary
		for i := len(head) - 1; i >= 0 && i >= len(head)-utf8.UTFMax; i-- {
			if utf8.RuneStart(head[i]) {
				head = head[:i]
				break
			}
		}
	}
	if utf8.Valid(head) {
		return br
	}
	return bufio.NewReader(charmap.Windows1252.NewDecoder().Reader(br))
}

func sniffDelimiter(headerLine string) rune {
	if strings.Count(headerLine, ";") > strings.Count(headerLine, ",") {
		return ';'
	}
	return ','
}

// isEmptyRow checks if a row contains only empty strings
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func trimAll(cells []string) {
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
}

func checkSize(file *os.File, maxSize int64) error {
	if maxSize <= 0 {
		return nil
	}
	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.Size() > maxSize {
		return apperrors.FileTooLarge(maxSize / (1024 * 1024))
	}
	return nil
}
