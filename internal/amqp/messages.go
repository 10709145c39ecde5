package amqp

import (
	"encoding/json"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/services"
)

// PaymentRecordedMessage is the wire form of a payment event. It
// carries the full row so the export worker never has to reach back
// into the database.
type PaymentRecordedMessage struct {
	UserID         int64     `json:"user_id"`
	SubscriptionID int64     `json:"subscription_id"`
	Name           string    `json:"name"`
	AmountCents    int64     `json:"amount_cents"`
	Currency       string    `json:"currency"`
	PaidOn         string    `json:"paid_on"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewPaymentRecordedMessage(ev services.PaymentEvent) *PaymentRecordedMessage {
	return &PaymentRecordedMessage{
		UserID:         ev.UserID,
		SubscriptionID: ev.SubscriptionID,
		Name:           ev.Name,
		AmountCents:    ev.Amount.Cents,
		Currency:       string(ev.Amount.Currency),
		PaidOn:         ev.PaidOn.ISO(),
		Timestamp:      time.Now(),
	}
}

// Amount rebuilds the money value from the wire fields.
func (m *PaymentRecordedMessage) Amount() core.Money {
	return core.Money{Cents: m.AmountCents, Currency: core.Currency(m.Currency)}
}

func (m *PaymentRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PaymentRecordedMessageFromJSON(data []byte) (*PaymentRecordedMessage, error) {
	var msg PaymentRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReminderMessage is the wire form of an upcoming-charge reminder.
type ReminderMessage struct {
	UserID         int64     `json:"user_id"`
	SubscriptionID int64     `json:"subscription_id"`
	Name           string    `json:"name"`
	PriceCents     int64     `json:"price_cents"`
	Currency       string    `json:"currency"`
	NextDate       string    `json:"next_date"`
	DaysLeft       int       `json:"days_left"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewReminderMessage(ev services.ReminderEvent) *ReminderMessage {
	return &ReminderMessage{
		UserID:         ev.UserID,
		SubscriptionID: ev.SubscriptionID,
		Name:           ev.Name,
		PriceCents:     ev.Price.Cents,
		Currency:       string(ev.Price.Currency),
		NextDate:       ev.NextDate.ISO(),
		DaysLeft:       ev.DaysLeft,
		Timestamp:      time.Now(),
	}
}

func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
