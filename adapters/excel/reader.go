package excel

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"incomedash/domain/table"
	"incomedash/internal"
)

// DataReader handles reading Excel and delimited text files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	config   ReaderConfig
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string, config ReaderConfig) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "csv"
	if ext == ".xlsx" || ext == ".xlsm" {
		fileType = "xlsx"
	}
	if config.Delimiter == 0 && ext == ".tsv" {
		config.Delimiter = '\t'
	}
	return &DataReader{
		filePath: filePath,
		fileType: fileType,
		config:   config,
		logger:   internal.DefaultLogger.With("DataReader"),
	}
}

// ReadData reads the file into headers and string rows
func (r *DataReader) ReadData() (*table.RawData, error) {
	r.logger.Debug("reading %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); err != nil {
		return nil, fmt.Errorf("%s file not accessible: %w", strings.ToUpper(r.fileType), err)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

// readExcelData reads the configured (or first) sheet
func (r *DataReader) readExcelData() (*table.RawData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := r.config.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("Excel file has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	r.logger.Debug("sheet %s read in %s (%d rows)", sheet, time.Since(startTime), len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("Excel file must have at least a header row and one data row")
	}
	return r.processRows(rows, true)
}

// readCSVData reads delimited text, decoding and sniffing the delimiter
func (r *DataReader) readCSVData() (*table.RawData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	var src io.Reader = file
	switch strings.ToLower(r.config.Encoding) {
	case "latin1", "iso-8859-1":
		src = transform.NewReader(file, charmap.ISO8859_1.NewDecoder())
	}

	buffered := bufio.NewReader(src)
	delimiter := r.config.Delimiter
	if delimiter == 0 {
		peek, _ := buffered.Peek(4096)
		delimiter = sniffDelimiter(string(peek))
	}

	reader := csv.NewReader(buffered)
	reader.Comma = delimiter
	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV file: %w", err)
	}
	r.logger.Debug("CSV file read in %s (%d rows)", time.Since(readStart), len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV file must have at least a header row and one data row")
	}
	return r.processRows(rows, false)
}

// sniffDelimiter picks the most frequent of , ; and tab in the header line
func sniffDelimiter(sample string) rune {
	header := sample
	if idx := strings.IndexByte(sample, '\n'); idx >= 0 {
		header = sample[:idx]
	}
	best, bestCount := ',', 0
	for _, cand := range []rune{',', ';', '\t'} {
		if n := strings.Count(header, string(cand)); n > bestCount {
			best, bestCount = cand, n
		}
	}
	return best
}

// processRows trims headers and cells. Workbook rows are padded because
// excelize drops trailing empty cells; delimited rows are already rectangular.
func (r *DataReader) processRows(rows [][]string, pad bool) (*table.RawData, error) {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		header = strings.TrimSpace(header)
		if i == 0 {
			header = strings.TrimPrefix(header, "\ufeff")
		}
		headers[i] = header
	}

	dataRows := make([][]string, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) > len(headers) {
			return nil, fmt.Errorf("row %d has %d cells, header has %d", i+1, len(row), len(headers))
		}
		if len(row) < len(headers) && !pad {
			return nil, fmt.Errorf("row %d has %d cells, header has %d", i+1, len(row), len(headers))
		}
		cells := make([]string, len(headers))
		for j, cell := range row {
			cells[j] = strings.TrimSpace(cell)
		}
		dataRows = append(dataRows, cells)
	}

	r.logger.Debug("%s file processed (%d columns, %d rows)", strings.ToUpper(r.fileType), len(headers), len(dataRows))
	return &table.RawData{Headers: headers, Rows: dataRows}, nil
}
