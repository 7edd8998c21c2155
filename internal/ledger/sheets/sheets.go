// Package sheets implements the ledger against a Google Sheets document.
package sheets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/ryanspoone/sdlc-metrics/config"
	"github.com/ryanspoone/sdlc-metrics/internal/entities"
)

// Sheets wraps the Sheets API for one spreadsheet. Grid indices are 0-based
// (row 0 = header, column 0 = labels); the A1 notation conversion happens
// here and nowhere else.
type Sheets struct {
	baseCtx context.Context
	log     *zap.SugaredLogger
	cfg     config.SheetsConfig

	svc      *sheets.Service
	sheetIDs map[string]int64
}

// New creates a Sheets ledger instance.
func New(ctx context.Context, log *zap.SugaredLogger, cfg *config.Config) *Sheets {
	return &Sheets{
		baseCtx:  ctx,
		log:      log.Named("ledger.sheets"),
		cfg:      cfg.Sheets,
		sheetIDs: make(map[string]int64),
	}
}

// OnStart authorizes the service account and resolves worksheet ids.
func (s *Sheets) OnStart(_ context.Context) error {
	creds, err := os.ReadFile(s.cfg.CredentialsFile)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "read sheets credentials"), entities.ErrConfiguration)
	}
	jwt, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "parse sheets credentials"), entities.ErrConfiguration)
	}

	svc, err := sheets.NewService(s.baseCtx, option.WithHTTPClient(jwt.Client(s.baseCtx)))
	if err != nil {
		return errors.Wrap(err, "build sheets service")
	}

	doc, err := svc.Spreadsheets.Get(s.cfg.SpreadsheetID).Context(s.baseCtx).Do()
	if err != nil {
		return classify(err, "open spreadsheet")
	}
	for _, sh := range doc.Sheets {
		s.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
	}

	s.svc = svc
	s.log.Infow("sheets ready", "spreadsheet", s.cfg.SpreadsheetID, "worksheets", len(s.sheetIDs))
	return nil
}

// OnStop is a no-op; the API client holds no persistent resources.
func (s *Sheets) OnStop(_ context.Context) error { return nil }

// HeaderRow returns the full first row of a worksheet.
func (s *Sheets) HeaderRow(ctx context.Context, sheet string) ([]string, error) {
	return s.values(ctx, fmt.Sprintf("'%s'!1:1", sheet), rowMajor)
}

// Column returns the full values of a column, header cell first.
func (s *Sheets) Column(ctx context.Context, sheet string, index int) ([]string, error) {
	letter := columnLetter(index)
	return s.values(ctx, fmt.Sprintf("'%s'!%s:%s", sheet, letter, letter), columnMajor)
}

// InsertColumn inserts an empty column at index and writes its header.
func (s *Sheets) InsertColumn(ctx context.Context, sheet string, index int, label string) error {
	sheetID, err := s.sheetID(sheet)
	if err != nil {
		return err
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			InsertDimension: &sheets.InsertDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: int64(index),
					EndIndex:   int64(index) + 1,
				},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.cfg.SpreadsheetID, req).Context(ctx).Do(); err != nil {
		return classify(err, "insert column")
	}
	return s.UpdateCell(ctx, sheet, 0, index, label)
}

// AppendRow adds a row after the last row of the label column.
func (s *Sheets) AppendRow(ctx context.Context, sheet string, label string) (int, error) {
	labels, err := s.Column(ctx, sheet, 0)
	if err != nil {
		return 0, err
	}
	idx := len(labels)
	if err := s.UpdateCell(ctx, sheet, idx, 0, label); err != nil {
		return 0, err
	}
	return idx, nil
}

// UpdateCell overwrites a single cell.
func (s *Sheets) UpdateCell(ctx context.Context, sheet string, row, col int, value string) error {
	rng := fmt.Sprintf("'%s'!%s%d", sheet, columnLetter(col), row+1)
	vr := &sheets.ValueRange{Values: [][]any{{value}}}
	_, err := s.svc.Spreadsheets.Values.Update(s.cfg.SpreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	if err != nil {
		return classify(err, "update cell")
	}
	return nil
}

type axis int

const (
	rowMajor axis = iota
	columnMajor
)

func (s *Sheets) values(ctx context.Context, rng string, along axis) ([]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.cfg.SpreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, classify(err, "read values")
	}

	var out []string
	switch along {
	case rowMajor:
		if len(resp.Values) == 0 {
			return nil, nil
		}
		for _, cell := range resp.Values[0] {
			out = append(out, fmt.Sprint(cell))
		}
	case columnMajor:
		for _, row := range resp.Values {
			if len(row) == 0 {
				out = append(out, "")
				continue
			}
			out = append(out, fmt.Sprint(row[0]))
		}
	}
	return out, nil
}

func (s *Sheets) sheetID(sheet string) (int64, error) {
	id, ok := s.sheetIDs[sheet]
	if !ok {
		return 0, errors.Mark(errors.Newf("worksheet %q not found in spreadsheet", sheet), entities.ErrConfiguration)
	}
	return id, nil
}

// classify maps Sheets API failures onto the retry taxonomy: quota and
// server errors are retryable, everything else surfaces as-is.
func classify(err error, msg string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code >= 500 {
			return entities.Transient(err, msg)
		}
		return errors.Wrap(err, msg)
	}
	// transport-level failure
	return entities.Transient(err, msg)
}

// columnLetter converts a 0-based column index to its A1 letter(s).
func columnLetter(index int) string {
	var b strings.Builder
	n := index + 1
	for n > 0 {
		n--
		b.WriteByte(byte('A' + n%26))
		n /= 26
	}
	runes := []byte(b.String())
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
