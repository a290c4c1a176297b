// Package extract scans classified messages for billing signals and
// produces candidate bill facts.
package extract

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/mailmind/mailmind/internal/common"
	"github.com/mailmind/mailmind/internal/model"
	"github.com/sahilm/fuzzy"
)

// Categories eligible for bill extraction: most messages never reach this
// stage.
var eligible = map[model.Category]bool{
	model.CategorySubscription: true,
	model.CategoryImportant:    true,
	model.CategoryRegular:      true,
}

var (
	accountRe = regexp.MustCompile(`(?i)(?:account|acct)\D{0,24}?(\d{4})\b`)
	maskedRe  = regexp.MustCompile(`[*xX•]{2,}\s?(\d{4})\b`)
	urlRe     = regexp.MustCompile(`https?://[^\s<>"')]+`)
	hostRe    = regexp.MustCompile(`^https?://([^/]+)`)
)

// Extractor derives bill facts from classified messages.
type Extractor struct {
	logger *slog.Logger
}

// New creates a bill extractor.
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract returns the candidate bill fact found in the message, or nil when
// the message carries no billing signal. Extraction is best-effort, but a
// missing amount or due date disqualifies the candidate outright: partial
// bills are never created.
func (e *Extractor) Extract(cm *model.ClassifiedMessage) *model.BillFact {
	if !eligible[cm.Category] {
		return nil
	}

	msg := &cm.Message
	text := msg.Subject + " " + common.SanitizeHTML(msg.Text())

	amount, ok := parseAmount(text)
	if !ok {
		return nil
	}

	dueDate, ok := parseDueDate(text)
	if !ok {
		return nil
	}

	provider := ProviderName(msg)
	if provider == "" {
		return nil
	}

	fact := &model.BillFact{
		Provider:      provider,
		AccountSuffix: accountSuffix(text),
		Amount:        amount,
		DueDate:       dueDate,
		PaymentLink:   paymentLink(msg.Text(), provider),
		Category:      billCategory(text, cm.Category),
		MessageID:     msg.ID,
		MessageTime:   msg.Timestamp,
	}

	e.logger.Debug("extracted bill fact",
		"message_id", msg.ID,
		"provider", fact.Provider,
		"amount", fact.Amount,
		"due_date", fact.DueDate.Format("2006-01-02"))

	return fact
}

// ProviderName prefers the sender's display name, falling back to the
// registrable part of the sender domain.
func ProviderName(msg *model.Message) string {
	if name := strings.TrimSpace(msg.From.Name); name != "" {
		return name
	}

	domain := msg.From.Domain()
	if domain == "" {
		return ""
	}
	parts := strings.Split(domain, ".")
	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}
	return parts[0]
}

// accountSuffix finds the last four digits of an account number near the
// "account" keyword or in a masked number.
func accountSuffix(text string) string {
	if m := accountRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := maskedRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// paymentLink returns the first outbound link whose host correlates with
// the provider. Raw body text is used so URLs survive sanitization.
func paymentLink(body, provider string) string {
	links := urlRe.FindAllString(body, -1)
	if len(links) == 0 {
		return ""
	}

	normalized := model.NormalizeProvider(provider)

	hosts := make([]string, len(links))
	for i, link := range links {
		if m := hostRe.FindStringSubmatch(link); m != nil {
			hosts[i] = strings.ToLower(m[1])
		}
	}

	for i, host := range hosts {
		if host != "" && normalized != "" && strings.Contains(strings.ReplaceAll(host, "-", ""), normalized) {
			return links[i]
		}
	}

	// No exact host match; fall back to fuzzy correlation.
	if normalized != "" {
		matches := fuzzy.Find(normalized, hosts)
		if len(matches) > 0 {
			return links[matches[0].Index]
		}
	}

	return ""
}

// billCategory guesses the kind of obligation from the notice vocabulary.
func billCategory(text string, msgCategory model.Category) model.BillCategory {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, "electric", "power", "gas bill", "water", "utility", "utilities", "energy"):
		return model.BillCategoryUtility
	case containsAny(lower, "mortgage", "loan", "installment", "principal"):
		return model.BillCategoryLoan
	case containsAny(lower, "insurance", "premium", "policy"):
		return model.BillCategoryInsurance
	case containsAny(lower, "wireless", "mobile", "internet", "broadband", "phone plan"):
		return model.BillCategoryTelecom
	case containsAny(lower, "subscription", "membership", "renewal", "streaming"):
		return model.BillCategorySubscription
	case msgCategory == model.CategorySubscription:
		return model.BillCategorySubscription
	default:
		return model.BillCategoryOther
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
