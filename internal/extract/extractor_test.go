package extract

import (
	"testing"
	"time"

	"github.com/mailmind/mailmind/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classified(category model.Category, msg model.Message) *model.ClassifiedMessage {
	return &model.ClassifiedMessage{
		Message:     msg,
		Category:    category,
		Source:      model.SourceRule,
		RuleVersion: "v1",
	}
}

func TestExtractor_Extract(t *testing.T) {
	e := New(nil)

	msg := model.Message{
		ID:      "m1",
		Subject: "Your electric bill is due",
		Body: `Dear customer, your PowerCo statement is ready.
Amount due: $128.50 for account ending in 4821.
Payment due by 2025-03-10.
Pay online: https://pay.powerco.com/invoice/99`,
		From:      model.EmailAddress{Name: "PowerCo", Address: "billing@powerco.com"},
		Timestamp: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}

	fact := e.Extract(classified(model.CategorySubscription, msg))
	require.NotNil(t, fact)

	assert.Equal(t, "PowerCo", fact.Provider)
	assert.Equal(t, "4821", fact.AccountSuffix)
	assert.InDelta(t, 128.50, fact.Amount, 0.001)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), fact.DueDate)
	assert.Equal(t, "https://pay.powerco.com/invoice/99", fact.PaymentLink)
	assert.Equal(t, model.BillCategoryUtility, fact.Category)
	assert.Equal(t, "m1", fact.MessageID)
}

func TestExtractor_SkipsIneligibleCategories(t *testing.T) {
	e := New(nil)

	msg := model.Message{
		ID:      "m2",
		Subject: "Invoice due",
		Body:    "Amount due: $50.00. Payment due by 2025-04-01.",
		From:    model.EmailAddress{Name: "Acme", Address: "billing@acme.com"},
	}

	for _, cat := range []model.Category{model.CategoryEmergency, model.CategoryWork, model.CategoryPersonal} {
		assert.Nil(t, e.Extract(classified(cat, msg)), "category %s must be skipped", cat)
	}
	assert.NotNil(t, e.Extract(classified(model.CategorySubscription, msg)))
}

func TestExtractor_NoPartialBills(t *testing.T) {
	e := New(nil)

	tests := []struct {
		name string
		body string
	}{
		{
			name: "amount without due date",
			body: "Your payment of $42.00 was scheduled.",
		},
		{
			name: "due date without amount",
			body: "Your statement is due by 2025-05-01.",
		},
		{
			name: "no billing signal at all",
			body: "Thanks for being a customer!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := model.Message{
				ID:      "m3",
				Subject: "Notice",
				Body:    tt.body,
				From:    model.EmailAddress{Name: "Acme", Address: "no-reply@acme.com"},
			}
			assert.Nil(t, e.Extract(classified(model.CategoryRegular, msg)))
		})
	}
}

func TestExtractor_ProviderFromDomain(t *testing.T) {
	e := New(nil)

	msg := model.Message{
		ID:      "m4",
		Subject: "Payment due",
		Body:    "Amount due: $19.99. Due by Apr 3, 2025.",
		From:    model.EmailAddress{Address: "notices@streamflix.com"},
	}

	fact := e.Extract(classified(model.CategorySubscription, msg))
	require.NotNil(t, fact)
	assert.Equal(t, "streamflix", fact.Provider)
	assert.Equal(t, time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC), fact.DueDate)
}

func TestExtractor_MaskedAccountNumber(t *testing.T) {
	e := New(nil)

	msg := model.Message{
		ID:      "m5",
		Subject: "Card statement",
		Body:    "Your card ****7788 has a balance due of $312.45, due on 06/15/2025.",
		From:    model.EmailAddress{Name: "First Bank", Address: "statements@firstbank.com"},
	}

	fact := e.Extract(classified(model.CategoryImportant, msg))
	require.NotNil(t, fact)
	assert.Equal(t, "7788", fact.AccountSuffix)
	assert.InDelta(t, 312.45, fact.Amount, 0.001)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), fact.DueDate)
}

func TestExtractor_HTMLBody(t *testing.T) {
	e := New(nil)

	msg := model.Message{
		ID:      "m6",
		Subject: "Internet bill",
		Body: `<html><body><style>p{color:red}</style>
<p>Amount due: <b>$89.99</b></p>
<p>Payment due by <span>March 20, 2025</span></p>
<a href="https://billing.connectnet.com/pay">https://billing.connectnet.com/pay</a>
</body></html>`,
		From: model.EmailAddress{Name: "ConnectNet", Address: "billing@connectnet.com"},
	}

	fact := e.Extract(classified(model.CategorySubscription, msg))
	require.NotNil(t, fact)
	assert.InDelta(t, 89.99, fact.Amount, 0.001)
	assert.Equal(t, time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), fact.DueDate)
	assert.Equal(t, model.BillCategoryTelecom, fact.Category)
	assert.Equal(t, "https://billing.connectnet.com/pay", fact.PaymentLink)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
		ok   bool
	}{
		{name: "dollar sign", text: "pay $128.50 now", want: 128.50, ok: true},
		{name: "thousands separator", text: "total $1,234.56", want: 1234.56, ok: true},
		{name: "comma decimal", text: "amount due €99,00", want: 99.00, ok: true},
		{name: "code suffix", text: "pay 49.95 USD today", want: 49.95, ok: true},
		{name: "ambiguous comma treated as thousands", text: "$1,234", want: 1234, ok: true},
		{name: "preferred near keyword", text: "late fee $9.99 ... amount due $120.00", want: 120.00, ok: true},
		{name: "no amount", text: "no money here", ok: false},
		{name: "rounds to two decimals", text: "$10.999", want: 11.00, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseAmount(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 0.001)
			}
		})
	}
}

func TestParseDueDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want time.Time
		ok   bool
	}{
		{name: "iso after phrase", text: "payment due by 2025-03-10", want: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "long month", text: "due on January 5, 2026", want: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "abbreviated month", text: "due by Mar 10, 2025", want: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "slash date", text: "Payment due: 04/01/2025", want: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "day first", text: "due by 7 April 2025", want: time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "bare date fallback", text: "statement for 2025-06-01", want: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "no date", text: "due whenever you like", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseDueDate(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
