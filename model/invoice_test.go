package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestExtractLineItemAmount(t *testing.T) {
	tests := []struct {
		name     string
		lineItem string
		want     string
		wantErr  bool
	}{
		{
			name:     "plain amount",
			lineItem: "SEO Services: $450.00",
			want:     "450",
		},
		{
			name:     "thousands separator",
			lineItem: "Consulting Retainer: $1,609.00",
			want:     "1609",
		},
		{
			name:     "no decimals",
			lineItem: "Hosting: $99",
			want:     "99",
		},
		{
			name:     "amount mid-sentence",
			lineItem: "3 units of Widget A at $12.50 each",
			want:     "12.5",
		},
		{
			name:     "no amount",
			lineItem: "Consulting Retainer",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractLineItemAmount(tt.lineItem)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestPaymentStatusFor(t *testing.T) {
	amount := decimal.NewFromInt(100)

	assert.Equal(t, PaymentStatusUnpaid, PaymentStatusFor(decimal.Zero, amount))
	assert.Equal(t, PaymentStatusPartial, PaymentStatusFor(decimal.NewFromInt(40), amount))
	assert.Equal(t, PaymentStatusFull, PaymentStatusFor(decimal.NewFromInt(100), amount))
	assert.Equal(t, PaymentStatusFull, PaymentStatusFor(decimal.NewFromInt(150), amount))
}
