package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Payment channels accepted on transaction submission.
const (
	ChannelOnline  = "online"
	ChannelInStore = "in store"
	ChannelACH     = "ach"
	ChannelWire    = "wire"
	ChannelCheck   = "check"
	ChannelOther   = "other"
)

// Transaction is a posted bank transaction. TransactionID is externally supplied
// and acts as the natural key: re-submitting the same id overwrites the record.
type Transaction struct {
	ID                     int64           `json:"-"`
	TransactionID          string          `json:"transaction_id"`
	AccountID              string          `json:"account_id"`
	Amount                 decimal.Decimal `json:"amount"`
	Currency               string          `json:"iso_currency_code,omitempty"`
	UnofficialCurrencyCode string          `json:"unofficial_currency_code,omitempty"`
	Date                   time.Time       `json:"date"`
	AuthorizedDate         *time.Time      `json:"authorized_date,omitempty"`
	Name                   string          `json:"name"`
	MerchantName           string          `json:"merchant_name,omitempty"`
	Category               []string        `json:"category,omitempty"`
	CategoryID             string          `json:"category_id,omitempty"`
	PaymentChannel         string          `json:"payment_channel"`
	Pending                bool            `json:"pending"`
	PendingTransactionID   string          `json:"pending_transaction_id,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
}

func (transaction *Transaction) ToJSON() ([]byte, error) {
	return json.Marshal(transaction)
}
