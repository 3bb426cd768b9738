package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/bankcat/internal/common"
	"github.com/Veraticus/bankcat/internal/model"
)

// ledgerColumns is the width of the ledger table.
const ledgerColumns = 10

var ledgerHeader = []any{
	"Date",
	"Description",
	"Debit",
	"Credit",
	"Balance",
	"Category",
	"Vendor",
	"Suggested Category",
	"Confidence",
	"Reason",
}

// Writer exports committed periods to a Google spreadsheet, one tab per commit.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: service,
		logger:  logger,
	}, nil
}

// WriteCommit writes one commit and its ledger rows to a tab named after the
// period and commit id, replacing that tab's contents if it already exists.
// It returns the spreadsheet id.
func (w *Writer) WriteCommit(ctx context.Context, record *model.CommitRecord, txns []model.CommittedTransaction) (string, error) {
	if record == nil {
		return "", fmt.Errorf("%w: commit record", common.ErrNotFound)
	}
	w.logger.Info("starting ledger export",
		"commit_id", record.ID,
		"period", record.Period,
		"rows", len(txns))

	retryOpts := common.RetryOptions{
		MaxAttempts:  max(1, w.config.RetryAttempts),
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	var spreadsheetID string
	err := common.WithRetry(ctx, func() error {
		var getErr error
		spreadsheetID, getErr = w.getOrCreateSpreadsheet(ctx)
		return classifyAPIError(getErr)
	}, retryOpts)
	if err != nil {
		return "", fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	title := SheetTitle(record)
	var sheetID int64
	err = common.WithRetry(ctx, func() error {
		var sheetErr error
		sheetID, sheetErr = w.ensureSheet(ctx, spreadsheetID, title)
		return classifyAPIError(sheetErr)
	}, retryOpts)
	if err != nil {
		return "", fmt.Errorf("failed to prepare sheet %q: %w", title, err)
	}

	values, headerRow := prepareCommitData(record, txns)

	err = common.WithRetry(ctx, func() error {
		return classifyAPIError(w.writeData(ctx, spreadsheetID, title, values))
	}, retryOpts)
	if err != nil {
		return "", fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return classifyAPIError(w.applyFormatting(ctx, spreadsheetID, sheetID, headerRow, len(values)))
		}, retryOpts)
		if err != nil {
			// Formatting is cosmetic.
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("ledger export completed",
		"spreadsheet_id", spreadsheetID,
		"sheet", title,
		"rows_written", len(values))

	return spreadsheetID, nil
}

// classifyAPIError marks a Sheets call failure for common.WithRetry. Quota
// refusals and server errors are transient and keep the server's Retry-After;
// any other API status is permanent. Errors that never reached the API are
// transport failures and are retried.
func classifyAPIError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return common.Transient(err, 0)
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests || isQuotaRefusal(apiErr):
		return common.Transient(fmt.Errorf("%w: %w", common.ErrRateLimit, err), retryAfter(apiErr.Header))
	case apiErr.Code >= http.StatusInternalServerError:
		return common.Transient(err, retryAfter(apiErr.Header))
	default:
		return common.Permanent(err)
	}
}

// isQuotaRefusal reports the 403 form of a rate limit.
func isQuotaRefusal(apiErr *googleapi.Error) bool {
	if apiErr.Code != http.StatusForbidden {
		return false
	}
	for _, item := range apiErr.Errors {
		if strings.HasSuffix(strings.ToLower(item.Reason), "ratelimitexceeded") {
			return true
		}
	}
	return false
}

func retryAfter(header http.Header) time.Duration {
	if header == nil {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(header.Get("Retry-After")))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// SheetTitle names the tab holding one commit.
func SheetTitle(record *model.CommitRecord) string {
	return fmt.Sprintf("%s #%d", record.Period, record.ID)
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		if token.RefreshToken == "" {
			saved, err := LoadToken(config.TokenFile)
			if err != nil {
				return nil, fmt.Errorf("unable to load token from %s: %w", config.TokenFile, err)
			}
			token = saved
		}

		tokenSource = oauthConfig(config.ClientID, config.ClientSecret, "").TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet gets an existing spreadsheet or creates a new one.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.config.SpreadsheetID != "" {
		_, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return w.config.SpreadsheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	// Later exports reuse the same spreadsheet.
	w.config.SpreadsheetID = created.SpreadsheetId
	return created.SpreadsheetId, nil
}

// ensureSheet returns the id of the titled tab, clearing it when it exists
// and adding it otherwise.
func (w *Writer) ensureSheet(ctx context.Context, spreadsheetID, title string) (int64, error) {
	spreadsheet, err := w.service.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, quoteTitle(title)+"!A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
			return sheet.Properties.SheetId, err
		}
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: title},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return 0, fmt.Errorf("no reply for new sheet %q", title)
	}
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

type categoryTotals struct {
	debit  decimal.Decimal
	credit decimal.Decimal
	count  int
}

// prepareCommitData lays out the commit summary, the per-category totals
// and the ledger rows. It also returns the zero-based index of the ledger
// header row.
func prepareCommitData(record *model.CommitRecord, txns []model.CommittedTransaction) ([][]any, int) {
	accuracy := "n/a"
	if record.Accuracy != nil {
		accuracy = fmt.Sprintf("%.1f%%", *record.Accuracy*100)
	}

	totals := make(map[string]*categoryTotals)
	var totalDebit, totalCredit decimal.Decimal
	for i := range txns {
		tx := &txns[i]
		ct, ok := totals[tx.Category]
		if !ok {
			ct = &categoryTotals{}
			totals[tx.Category] = ct
		}
		ct.count++
		ct.debit = ct.debit.Add(tx.Debit)
		ct.credit = ct.credit.Add(tx.Credit)
		totalDebit = totalDebit.Add(tx.Debit)
		totalCredit = totalCredit.Add(tx.Credit)
	}

	categories := make([]string, 0, len(totals))
	for name := range totals {
		categories = append(categories, name)
	}
	sort.Slice(categories, func(i, j int) bool {
		a := totals[categories[i]].debit.Add(totals[categories[i]].credit)
		b := totals[categories[j]].debit.Add(totals[categories[j]].credit)
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return categories[i] < categories[j]
	})

	values := make([][]any, 0, 14+len(categories)+len(txns))
	values = append(values,
		[]any{"Committed Ledger", record.Period},
		[]any{}, // Empty row
		[]any{"Summary"},
		[]any{"Commit", record.ID},
		[]any{"Committed By", record.CommittedBy},
		[]any{"Committed At", record.CommittedAt.Format("2006-01-02 15:04")},
		[]any{"Rows", record.RowsCommitted},
		[]any{"Suggestion Accuracy", accuracy},
		[]any{"Notes", record.Notes},
		[]any{}, // Empty row
		[]any{"Category Breakdown"},
		[]any{"Category", "Count", "Debit", "Credit"},
	)
	for _, name := range categories {
		ct := totals[name]
		values = append(values, []any{name, ct.count, ct.debit.StringFixed(2), ct.credit.StringFixed(2)})
	}
	values = append(values,
		[]any{"Total", len(txns), totalDebit.StringFixed(2), totalCredit.StringFixed(2)},
		[]any{}, // Empty row
		[]any{"Transactions"},
	)

	headerRow := len(values)
	values = append(values, ledgerHeader)
	for i := range txns {
		tx := &txns[i]
		balance := ""
		if tx.Balance.Valid {
			balance = tx.Balance.Decimal.StringFixed(2)
		}
		values = append(values, []any{
			tx.Date.Format("2006-01-02"),
			tx.Description,
			tx.Debit.StringFixed(2),
			tx.Credit.StringFixed(2),
			balance,
			tx.Category,
			tx.Vendor,
			tx.SuggestedCategory,
			fmt.Sprintf("%.2f", tx.Confidence),
			tx.Reason,
		})
	}

	return values, headerRow
}

// writeData writes the data to the sheet.
func (w *Writer) writeData(ctx context.Context, spreadsheetID, title string, values [][]any) error {
	// Write in batches to avoid API limits
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))

		batch := values[i:end]
		valueRange := &sheets.ValueRange{
			Values: batch,
		}

		rangeStr := fmt.Sprintf("%s!A%d", quoteTitle(title), i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()

		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "start_row", i+1, "rows", len(batch))
	}

	return nil
}

// applyFormatting applies formatting to the sheet.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, sheetID int64, headerRow, totalRows int) error {
	requests := []*sheets.Request{
		// Title
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   2,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{
							Bold:     true,
							FontSize: 16,
						},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		// Ledger header
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    int64(headerRow),
					EndRowIndex:      int64(headerRow + 1),
					StartColumnIndex: 0,
					EndColumnIndex:   ledgerColumns,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{
							Bold: true,
						},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		// Debit, credit and balance columns
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    int64(headerRow + 1),
					EndRowIndex:      int64(totalRows),
					StartColumnIndex: 2,
					EndColumnIndex:   5,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						NumberFormat: &sheets.NumberFormat{
							Type:    "NUMBER",
							Pattern: "#,##0.00",
						},
					},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   ledgerColumns,
				},
			},
		},
	}

	batchUpdate := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, batchUpdate).Context(ctx).Do()
	return err
}
