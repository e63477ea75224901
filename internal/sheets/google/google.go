package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"dompet/internal/core"
	"dompet/internal/log"
	ports "dompet/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const DefaultSheetName = "Transaksi"

// Config selects the spreadsheet and the service account used to write it.
type Config struct {
	SpreadsheetID string
	SheetName     string
	// CredentialsJSON takes precedence over CredentialsFile. With both empty
	// GOOGLE_APPLICATION_CREDENTIALS is read.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string

	mu      sync.Mutex
	sheetID *int64
}

var _ ports.TransactionExporter = (*Client)(nil)

// New creates a Sheets exporter authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("spreadsheet id is empty")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, cfg), nil
}

func newClient(svc *gsheet.Service, cfg Config) *Client {
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = DefaultSheetName
	}
	return &Client{svc: svc, spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID), sheet: sheet}
}

// credentials resolves the service account key: inline JSON, then the
// configured file, then GOOGLE_APPLICATION_CREDENTIALS.
func credentials(cfg Config) (key []byte, source string, err error) {
	if inline := strings.TrimSpace(cfg.CredentialsJSON); inline != "" {
		return []byte(inline), "inline", nil
	}
	path := strings.TrimSpace(cfg.CredentialsFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, "", errNoCredentials
	}
	key, err = os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("service account key %s: %w", path, err)
	}
	return key, path, nil
}

var errNoCredentials = errors.New("no service account key: set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS")

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	key, source, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Opening Sheets API with service account",
		log.FieldComponent, log.ComponentSheets,
		"source", source)
	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(key),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// Upsert rewrites the row holding t.ID in place, or appends one. The header
// row is written together with the first appended transaction.
func (c *Client) Upsert(ctx context.Context, t core.Transaction) (string, error) {
	if t.ID == "" {
		return "", errors.New("transaction id is empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return "", err
	}

	row := toCells(ports.Row(t))
	if i := indexOf(ids, t.ID); i >= 0 {
		n := i + 1
		rng := fmt.Sprintf("%s!A%d:I%d", c.sheet, n, n)
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{row}}).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("update %s: %w", rng, err)
		}
		return rng, nil
	}

	values := [][]any{row}
	if len(ids) == 0 {
		values = [][]any{toCells(ports.Header), row}
	}
	rng := fmt.Sprintf("%s!A:I", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheet, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// Remove deletes the row holding transactionID so later rows shift up.
func (c *Client) Remove(ctx context.Context, transactionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	i := indexOf(ids, transactionID)
	if i < 0 {
		slog.DebugContext(ctx, "Transaction not found in sheet",
			log.FieldComponent, log.ComponentSheets,
			log.FieldTransactionID, transactionID)
		return nil
	}

	sheetID, err := c.lookupSheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(i),
			EndIndex:   int64(i + 1),
		}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d of %s: %w", i+1, c.sheet, err)
	}
	return nil
}

// readIDs returns column A, one entry per row including the header.
func (c *Client) readIDs(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			out[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return out, nil
}

func (c *Client) lookupSheetID(ctx context.Context) (int64, error) {
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheet {
			id := s.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheet)
}

func toCells(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if v == target {
			return i
		}
	}
	return -1
}
