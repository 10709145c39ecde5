// Package export appends recorded payments to a Google Sheet, giving
// users a ledger they can pivot and chart outside the app.
package export

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"subtrack/internal/amqp"
)

// SheetsAppender writes one row per payment to a fixed sheet. Auth is
// service-account only; there is no interactive OAuth flow.
type SheetsAppender struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        *slog.Logger
}

func NewSheetsAppender(ctx context.Context, spreadsheetID, sheetName, credentialsFile, credentialsJSON string, logger *slog.Logger) (*SheetsAppender, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	switch {
	case credentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	case credentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	// With neither set, Application Default Credentials apply.

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsAppender{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger,
	}, nil
}

// AppendPayment writes the payment as a row:
// paid_on, user_id, subscription_id, name, amount, currency.
func (a *SheetsAppender) AppendPayment(ctx context.Context, msg *amqp.PaymentRecordedMessage) error {
	row := []interface{}{
		msg.PaidOn,
		msg.UserID,
		msg.SubscriptionID,
		msg.Name,
		msg.Amount().Units(),
		msg.Currency,
	}
	vr := &sheets.ValueRange{Values: [][]interface{}{row}}

	_, err := a.svc.Spreadsheets.Values.
		Append(a.spreadsheetID, a.sheetName+"!A:F", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append payment row: %w", err)
	}

	a.logger.Info("payment exported",
		"user_id", msg.UserID,
		"subscription_id", msg.SubscriptionID,
		"paid_on", msg.PaidOn,
		"sheet", a.sheetName)
	return nil
}
