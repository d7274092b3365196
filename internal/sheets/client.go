// Package sheets reads the operations spreadsheet from Google Sheets,
// resolving it by name via the Drive API and authenticating with a
// service-account JWT.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cashforce/propostas-sync/internal/pipeline"
)

const (
	driveFilesURL   = "https://www.googleapis.com/drive/v3/files"
	sheetsAPIURL    = "https://sheets.googleapis.com/v4/spreadsheets"
	spreadsheetMime = "application/vnd.google-apps.spreadsheet"
)

var (
	// ErrSpreadsheetNotFound means no Drive file matched the configured name.
	ErrSpreadsheetNotFound = errors.New("sheets: spreadsheet not found")
	// ErrWorksheetNotFound means no worksheet title matched, even after the
	// whitespace/case-tolerant fallback scan.
	ErrWorksheetNotFound = errors.New("sheets: worksheet not found")

	errUnexpectedStatus = errors.New("sheets: unexpected http status")
)

// Client reads one named spreadsheet.
type Client struct {
	httpClient *http.Client
	tokens     *tokenSource
	sheetName  string
	headerRow  int
	driveURL   string
	sheetsURL  string
}

// New builds a Sheets client from a service-account credentials blob. The
// header of the main worksheet sits at headerRow (1-based); rows above it are
// ignored.
func New(httpClient *http.Client, credentialsJSON []byte, sheetName string, headerRow int) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if headerRow < 1 {
		return nil, fmt.Errorf("sheets: header row must be >= 1, got %d", headerRow)
	}
	tokens, err := newTokenSource(credentialsJSON, httpClient)
	if err != nil {
		return nil, err
	}
	return &Client{
		httpClient: httpClient,
		tokens:     tokens,
		sheetName:  sheetName,
		headerRow:  headerRow,
		driveURL:   driveFilesURL,
		sheetsURL:  sheetsAPIURL,
	}, nil
}

// Rows returns the first worksheet's data rows as header-keyed records.
// Cells beyond a short row are absent from its record; the header row and
// everything above it are skipped.
func (c *Client) Rows(ctx context.Context) ([]pipeline.RawRow, error) {
	id, err := c.resolveSpreadsheetID(ctx)
	if err != nil {
		return nil, err
	}
	titles, err := c.worksheetTitles(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(titles) == 0 {
		return nil, fmt.Errorf("%w: spreadsheet %q has no worksheets", ErrWorksheetNotFound, c.sheetName)
	}

	values, err := c.values(ctx, id, titles[0])
	if err != nil {
		return nil, err
	}
	if len(values) < c.headerRow {
		return nil, nil
	}

	header := make([]string, len(values[c.headerRow-1]))
	for i, cell := range values[c.headerRow-1] {
		if s, ok := cell.(string); ok {
			header[i] = strings.TrimSpace(s)
		}
	}

	rows := make([]pipeline.RawRow, 0, len(values)-c.headerRow)
	for _, rowCells := range values[c.headerRow:] {
		row := make(pipeline.RawRow, len(header))
		for i, label := range header {
			if label == "" || i >= len(rowCells) {
				continue
			}
			row[label] = rowCells[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// NamedCell reads a single cell (A1 notation) from an auxiliary worksheet.
// Worksheet titles are matched exactly first, then with whitespace trimmed
// and case folded, since the KPI tabs get renamed with stray spaces.
func (c *Client) NamedCell(ctx context.Context, worksheet, cellRef string) (string, error) {
	id, err := c.resolveSpreadsheetID(ctx)
	if err != nil {
		return "", err
	}
	titles, err := c.worksheetTitles(ctx, id)
	if err != nil {
		return "", err
	}

	title, err := matchWorksheet(titles, worksheet)
	if err != nil {
		return "", err
	}

	values, err := c.values(ctx, id, title+"!"+cellRef)
	if err != nil {
		return "", err
	}
	if len(values) == 0 || len(values[0]) == 0 {
		return "", nil
	}
	if s, ok := values[0][0].(string); ok {
		return s, nil
	}
	return fmt.Sprint(values[0][0]), nil
}

func matchWorksheet(titles []string, wanted string) (string, error) {
	for _, t := range titles {
		if t == wanted {
			return t, nil
		}
	}
	folded := strings.ToLower(strings.TrimSpace(wanted))
	for _, t := range titles {
		if strings.ToLower(strings.TrimSpace(t)) == folded {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrWorksheetNotFound, wanted)
}

func (c *Client) resolveSpreadsheetID(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		strings.ReplaceAll(c.sheetName, "'", `\'`), spreadsheetMime))
	q.Set("fields", "files(id,name)")
	q.Set("pageSize", "1")

	var payload struct {
		Files []struct {
			ID string `json:"id"`
		} `json:"files"`
	}
	if err := c.get(ctx, c.driveURL+"?"+q.Encode(), &payload); err != nil {
		return "", err
	}
	if len(payload.Files) == 0 {
		return "", fmt.Errorf("%w: %q", ErrSpreadsheetNotFound, c.sheetName)
	}
	return payload.Files[0].ID, nil
}

func (c *Client) worksheetTitles(ctx context.Context, spreadsheetID string) ([]string, error) {
	var payload struct {
		Sheets []struct {
			Properties struct {
				Title string `json:"title"`
			} `json:"properties"`
		} `json:"sheets"`
	}
	u := fmt.Sprintf("%s/%s?fields=sheets.properties.title", c.sheetsURL, url.PathEscape(spreadsheetID))
	if err := c.get(ctx, u, &payload); err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(payload.Sheets))
	for _, s := range payload.Sheets {
		titles = append(titles, s.Properties.Title)
	}
	return titles, nil
}

func (c *Client) values(ctx context.Context, spreadsheetID, valueRange string) ([][]any, error) {
	var payload struct {
		Values [][]any `json:"values"`
	}
	u := fmt.Sprintf("%s/%s/values/%s?majorDimension=ROWS",
		c.sheetsURL, url.PathEscape(spreadsheetID), url.PathEscape(valueRange))
	if err := c.get(ctx, u, &payload); err != nil {
		return nil, err
	}
	return payload.Values, nil
}

func (c *Client) get(ctx context.Context, rawURL string, dest any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("sheets: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sheets: GET %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w %d on %s: %s", errUnexpectedStatus, resp.StatusCode, req.URL.Path, strings.TrimSpace(string(detail)))
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("sheets: decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}
