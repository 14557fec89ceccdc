// Package google exports emission records to a Google Sheets spreadsheet
// shared with auditors. Authentication uses a service account, or the
// user OAuth token minted by cmd/oauth-init when no service account is
// configured.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"carbonledger/internal/core"
	ports "carbonledger/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	recordsSheet  string
}

var _ ports.RecordWriter = (*Client)(nil)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials.
// Optional: GOOGLE_SHEET_NAME (default "Emissions"); the reporting year is
// prefixed automatically so each year's export lands on its own sheet.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	recordsBase := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if recordsBase == "" {
		recordsBase = "Emissions"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		recordsSheet:  yearPrefixedName(recordsBase, time.Now().Year()),
	}, nil
}

// newSheetsService initializes a Sheets Service. Service Account
// credentials (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE,
// or GOOGLE_APPLICATION_CREDENTIALS) take precedence; without them the
// user OAuth token minted by cmd/oauth-init is used.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		httpClient, err := oauthHTTPClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("no service account configured and OAuth fallback failed: %w", err)
		}
		service, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		slog.InfoContext(ctx, "Google Sheets service created", "auth", "oauth token")
		return service, nil
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "auth", "service account")
	return service, nil
}

// oauthHTTPClient builds an authenticated client from the OAuth client
// credentials and the token saved by cmd/oauth-init. The token source
// refreshes expired access tokens automatically.
func oauthHTTPClient(ctx context.Context) (*http.Client, error) {
	clientJSON, err := readEnvJSON("GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE")
	if err != nil {
		return nil, err
	}
	tokenJSON, err := readEnvJSON("GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE")
	if err != nil {
		return nil, err
	}

	cfg, err := googleoauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client config: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, errors.New("oauth token carries neither access nor refresh token; rerun oauth-init")
	}

	return cfg.Client(ctx, &token), nil
}

// readEnvJSON reads credential material from an inline env var or, failing
// that, from the file a second env var points at.
func readEnvJSON(jsonVar, fileVar string) ([]byte, error) {
	if v := strings.TrimSpace(os.Getenv(jsonVar)); v != "" {
		return []byte(v), nil
	}
	if f := strings.TrimSpace(os.Getenv(fileVar)); f != "" {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fileVar, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("set %s or %s", jsonVar, fileVar)
}

// AppendRecord appends one emission record as a spreadsheet row. Column
// order matches the CSV export so auditors see one consistent layout.
func (c *Client) AppendRecord(ctx context.Context, r core.EmissionRecord) (string, error) {
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	vr := &gsheet.ValueRange{Values: [][]any{{
		r.Date.String(),
		r.Scope,
		r.Category,
		r.Activity,
		r.Quantity,
		r.Unit,
		r.EmissionFactor,
		r.EmissionsKg,
		r.Notes,
	}}}

	rng := fmt.Sprintf("%s!A:I", c.recordsSheet)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.recordsSheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}

	slog.InfoContext(ctx, "Record exported to Google Sheets",
		"id", r.ID,
		"activity", r.Activity,
		"range", ref)

	return ref, nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with
// a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
