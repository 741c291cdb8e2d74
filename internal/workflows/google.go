package workflows

import (
	"context"
	"fmt"

	"google.golang.org/api/docs/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleClient publishes content through the Docs and Sheets APIs using
// service account credentials.
type GoogleClient struct {
	docs   *docs.Service
	sheets *sheets.Service
}

func NewGoogleClient(ctx context.Context, credentialsFile string) (*GoogleClient, error) {
	docsService, err := docs.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create docs service: %w", err)
	}

	sheetsService, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &GoogleClient{docs: docsService, sheets: sheetsService}, nil
}

// InsertDocText inserts the text at the top of the document body.
func (c *GoogleClient) InsertDocText(ctx context.Context, docID, text string) error {
	req := &docs.BatchUpdateDocumentRequest{
		Requests: []*docs.Request{
			{
				InsertText: &docs.InsertTextRequest{
					Location: &docs.Location{Index: 1},
					Text:     text,
				},
			},
		},
	}

	_, err := c.docs.Documents.BatchUpdate(docID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("docs batch update failed: %w", err)
	}
	return nil
}

// AppendSheetRow appends the text as a single-cell row on Sheet1.
func (c *GoogleClient) AppendSheetRow(ctx context.Context, sheetID, text string) error {
	values := &sheets.ValueRange{
		Values: [][]interface{}{{text}},
	}

	_, err := c.sheets.Spreadsheets.Values.Append(sheetID, "Sheet1", values).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets append failed: %w", err)
	}
	return nil
}
