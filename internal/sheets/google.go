package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"pnl_dashboard/config"
)

const (
	valueInputUserEntered = "USER_ENTERED"
	insertRows            = "INSERT_ROWS"
	dimensionRows         = "ROWS"
	tokenURI              = "https://oauth2.googleapis.com/token"
)

// Google reads and edits tabs through the Sheets v4 API with a service
// account.
type Google struct {
	svc *sheetsapi.Service
}

// NewGoogle builds an authenticated client. The client is created once and
// shared by every request.
func NewGoogle(ctx context.Context, cfg config.GoogleConfig, opts ...option.ClientOption) (*Google, error) {
	if len(opts) == 0 {
		creds, err := credentialsJSON(cfg)
		if err != nil {
			return nil, err
		}
		opts = []option.ClientOption{
			option.WithCredentialsJSON(creds),
			option.WithScopes(sheetsapi.SpreadsheetsScope),
		}
	}
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return &Google{svc: svc}, nil
}

// credentialsJSON returns the service-account key, assembling one from the
// split email and private key when no full key is configured. Escaped \n
// sequences in the private key are expanded.
func credentialsJSON(cfg config.GoogleConfig) ([]byte, error) {
	if key := strings.TrimSpace(cfg.ServiceAccountKey); key != "" {
		if !json.Valid([]byte(key)) {
			return nil, errors.New("GOOGLE_SERVICE_ACCOUNT_KEY is not valid JSON")
		}
		return []byte(key), nil
	}
	if strings.TrimSpace(cfg.ClientEmail) == "" || strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, errors.New("google credentials missing")
	}
	return json.Marshal(map[string]string{
		"type":         "service_account",
		"client_email": cfg.ClientEmail,
		"private_key":  strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n"),
		"token_uri":    tokenURI,
	})
}

func (g *Google) ReadTable(ctx context.Context, ref config.TableRef) (Table, error) {
	grid, err := g.readGrid(ctx, ref)
	if err != nil {
		return Table{}, err
	}
	return FromGrid(ref, grid), nil
}

func (g *Google) readGrid(ctx context.Context, ref config.TableRef) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(ref.SheetID, quoteTab(ref.Tab)).Context(ctx).Do()
	if err != nil {
		return nil, mapAPIErr(ref, err)
	}
	grid := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				cells[j] = fmt.Sprint(cell)
			}
		}
		grid[i] = cells
	}
	return grid, nil
}

func (g *Google) headers(ctx context.Context, ref config.TableRef) ([]string, error) {
	table, err := g.ReadTable(ctx, ref)
	if err != nil {
		return nil, err
	}
	return table.Headers, nil
}

func (g *Google) AppendRow(ctx context.Context, ref config.TableRef, values map[string]string) error {
	headers, err := g.headers(ctx, ref)
	if err != nil {
		return err
	}
	body := &sheetsapi.ValueRange{Values: [][]interface{}{toInterfaces(Align(headers, values))}}
	_, err = g.svc.Spreadsheets.Values.Append(ref.SheetID, quoteTab(ref.Tab), body).
		ValueInputOption(valueInputUserEntered).
		InsertDataOption(insertRows).
		Context(ctx).Do()
	return mapAPIErr(ref, err)
}

func (g *Google) UpdateRow(ctx context.Context, ref config.TableRef, rowNumber int, values map[string]string) error {
	if rowNumber < 1 {
		return fmt.Errorf("row %d: %w", rowNumber, ErrRowNotFound)
	}
	headers, err := g.headers(ctx, ref)
	if err != nil {
		return err
	}
	if len(headers) == 0 {
		return fmt.Errorf("%s has no header row", ref.Key())
	}
	rng := fmt.Sprintf("%s!A%d:%s%d", quoteTab(ref.Tab), rowNumber, ColumnName(len(headers)), rowNumber)
	body := &sheetsapi.ValueRange{Values: [][]interface{}{toInterfaces(Align(headers, values))}}
	_, err = g.svc.Spreadsheets.Values.Update(ref.SheetID, rng, body).
		ValueInputOption(valueInputUserEntered).
		Context(ctx).Do()
	return mapAPIErr(ref, err)
}

func (g *Google) DeleteRow(ctx context.Context, ref config.TableRef, rowNumber int) error {
	if rowNumber < 1 {
		return fmt.Errorf("row %d: %w", rowNumber, ErrRowNotFound)
	}
	meta, err := g.svc.Spreadsheets.Get(ref.SheetID).Context(ctx).Do()
	if err != nil {
		return mapAPIErr(ref, err)
	}
	var gid int64 = -1
	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == ref.Tab {
			gid = sheet.Properties.SheetId
			break
		}
	}
	if gid < 0 {
		return fmt.Errorf("%s: %w", ref.Key(), ErrTableNotFound)
	}
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			DeleteDimension: &sheetsapi.DeleteDimensionRequest{
				Range: &sheetsapi.DimensionRange{
					SheetId:         gid,
					Dimension:       dimensionRows,
					StartIndex:      int64(rowNumber - 1),
					EndIndex:        int64(rowNumber),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	_, err = g.svc.Spreadsheets.BatchUpdate(ref.SheetID, req).Context(ctx).Do()
	return mapAPIErr(ref, err)
}

// ColumnName converts a 1-based column count to A1 letters: 1 is A, 27 is AA.
func ColumnName(n int) string {
	if n < 1 {
		return "A"
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

func toInterfaces(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

func mapAPIErr(ref config.TableRef, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusNotFound ||
			(apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "Unable to parse range")) {
			return fmt.Errorf("%s: %w", ref.Key(), ErrTableNotFound)
		}
	}
	return fmt.Errorf("sheets %s: %w", ref.Key(), err)
}
