package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

// maxSampleErrors bounds the per-row errors kept in a LoadReport.
const maxSampleErrors = 10

var (
	ErrFileAccess    = errors.New("dataset: source file not accessible")
	ErrMalformedFile = errors.New("dataset: malformed source file")
	ErrMissingColumn = errors.New("dataset: missing column")
)

// FileAccessError reports a missing or unreadable source file.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

func (e *FileAccessError) Is(target error) bool { return target == ErrFileAccess }

// DateParseError describes a row dropped because its invoice date did not
// parse. It never fails a load.
type DateParseError struct {
	Line  int
	Value string
	Err   error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("line %d: invoice date %q: %v", e.Line, e.Value, e.Err)
}

func (e *DateParseError) Unwrap() error { return e.Err }

// RowError describes a row dropped because a numeric field was malformed.
type RowError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

type LoadReport struct {
	Source         string           `json:"source"`
	RowsRead       int              `json:"rows_read"`
	RowsKept       int              `json:"rows_kept"`
	DroppedDates   int              `json:"dropped_dates"`
	DroppedInvalid int              `json:"dropped_invalid"`
	DateErrors     []DateParseError `json:"-"`
	RowErrors      []RowError       `json:"-"`
	LoadedAt       time.Time        `json:"loaded_at"`
}

// Load reads the CSV at path. Rows whose invoice date does not parse, or
// whose age, quantity or price is malformed or negative, are left out.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileAccessError{Path: path, Err: err}
	}
	defer f.Close()

	t, err := LoadReader(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	t.report.Source = path
	return t, nil
}

// LoadReader parses CSV content from r. A header with no data rows yields an
// empty table. Records with the wrong number of fields are dropped like any
// other malformed row.
func LoadReader(r io.Reader) (*Table, error) {
	header, records, lines, ragged, err := readRecords(r)
	if err != nil {
		return nil, err
	}
	for _, name := range SourceColumns {
		if !slices.Contains(header, name) {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	report := LoadReport{
		RowsRead:       len(records) + len(ragged),
		DroppedInvalid: len(ragged),
		LoadedAt:       time.Now(),
	}
	for _, e := range ragged {
		if len(report.RowErrors) < maxSampleErrors {
			report.RowErrors = append(report.RowErrors, e)
		}
	}
	if len(records) == 0 {
		return &Table{rows: []models.Transaction{}, report: report}, nil
	}

	// Cells stay verbatim: no type detection and no NaN substitution, so a
	// literal "NA" category survives the load.
	df := dataframe.LoadRecords(append([][]string{header}, records...),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, df.Err)
	}

	cols := make(map[string][]string, len(SourceColumns))
	for _, name := range SourceColumns {
		cols[name] = df.Col(name).Records()
	}

	n := df.Nrow()
	rows := make([]models.Transaction, 0, n)

	for i := 0; i < n; i++ {
		line := lines[i]
		field := func(name string) string { return strings.TrimSpace(cols[name][i]) }

		rawDate := field(ColInvoiceDate)
		date, err := time.Parse(SourceDateLayout, rawDate)
		if err != nil {
			report.DroppedDates++
			if len(report.DateErrors) < maxSampleErrors {
				report.DateErrors = append(report.DateErrors, DateParseError{Line: line, Value: rawDate, Err: err})
			}
			continue
		}

		tx, rowErr := parseRow(field)
		if rowErr != nil {
			rowErr.Line = line
			report.DroppedInvalid++
			if len(report.RowErrors) < maxSampleErrors {
				report.RowErrors = append(report.RowErrors, *rowErr)
			}
			continue
		}
		tx.InvoiceDate = date
		rows = append(rows, tx)
	}

	report.RowsKept = len(rows)
	return &Table{rows: rows, report: report}, nil
}

var errFieldCount = errors.New("wrong number of fields")

// readRecords splits r into the header and the data records whose width
// matches it, remembering each kept record's line number. Records of any
// other width come back as RowErrors.
func readRecords(r io.Reader) (header []string, records [][]string, lines []int, ragged []RowError, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err = cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil, nil, fmt.Errorf("%w: no header row", ErrMalformedFile)
	}
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) != len(header) {
			ragged = append(ragged, RowError{
				Line:   line,
				Column: "record",
				Value:  fmt.Sprintf("%d fields, want %d", len(rec), len(header)),
				Err:    errFieldCount,
			})
			continue
		}
		records = append(records, rec)
		lines = append(lines, line)
	}
	return header, records, lines, ragged, nil
}

var errNegative = errors.New("negative value")

func parseRow(field func(string) string) (models.Transaction, *RowError) {
	age, err := parseCount(field(ColAge))
	if err != nil {
		return models.Transaction{}, &RowError{Column: ColAge, Value: field(ColAge), Err: err}
	}

	quantity, err := parseCount(field(ColQuantity))
	if err != nil {
		return models.Transaction{}, &RowError{Column: ColQuantity, Value: field(ColQuantity), Err: err}
	}

	price, err := decimal.NewFromString(field(ColPrice))
	if err == nil && price.IsNegative() {
		err = errNegative
	}
	if err != nil {
		return models.Transaction{}, &RowError{Column: ColPrice, Value: field(ColPrice), Err: err}
	}

	return models.Transaction{
		InvoiceNo:     field(ColInvoiceNo),
		CustomerID:    field(ColCustomerID),
		Gender:        field(ColGender),
		Age:           age,
		Category:      field(ColCategory),
		Quantity:      quantity,
		Price:         price,
		PaymentMethod: field(ColPaymentMethod),
		ShoppingMall:  field(ColShoppingMall),
	}, nil
}

func parseCount(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, errNegative
	}
	return v, nil
}
