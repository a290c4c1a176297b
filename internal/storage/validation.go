package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mailmind/mailmind/internal/model"
)

// Validation errors.
var (
	ErrNilContext            = errors.New("context cannot be nil")
	ErrEmptyString           = errors.New("string parameter cannot be empty")
	ErrNilParameter          = errors.New("parameter cannot be nil")
	ErrInvalidMessage        = errors.New("invalid message")
	ErrInvalidClassification = errors.New("invalid classification")
	ErrInvalidBill           = errors.New("invalid bill")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateMessages validates a slice of messages.
func validateMessages(messages []model.Message) error {
	if messages == nil {
		return fmt.Errorf("%w: messages", ErrNilParameter)
	}

	for i := range messages {
		if err := validateMessage(&messages[i]); err != nil {
			return fmt.Errorf("message at index %d: %w", i, err)
		}
	}
	return nil
}

// validateMessage validates a single message.
func validateMessage(msg *model.Message) error {
	if msg == nil {
		return fmt.Errorf("%w: message", ErrNilParameter)
	}
	if msg.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidMessage)
	}
	if msg.From.Address == "" {
		return fmt.Errorf("%w: missing sender address", ErrInvalidMessage)
	}
	if msg.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidMessage)
	}
	return nil
}

// validateClassification validates a classified message.
func validateClassification(cm *model.ClassifiedMessage) error {
	if cm == nil {
		return fmt.Errorf("%w: classification", ErrNilParameter)
	}
	if cm.Message.ID == "" {
		return fmt.Errorf("%w: missing message ID", ErrInvalidClassification)
	}
	if cm.RuleVersion == "" {
		return fmt.Errorf("%w: missing rule version", ErrInvalidClassification)
	}
	if !cm.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidClassification, cm.Category)
	}

	switch cm.Source {
	case model.SourceRule, model.SourceAI, model.SourceRuleFallback:
		// Valid source.
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidClassification, cm.Source)
	}
	return nil
}

// validateBill validates a bill.
func validateBill(bill *model.Bill) error {
	if bill == nil {
		return fmt.Errorf("%w: bill", ErrNilParameter)
	}
	if strings.TrimSpace(bill.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidBill)
	}
	if strings.TrimSpace(bill.Provider) == "" {
		return fmt.Errorf("%w: missing provider", ErrInvalidBill)
	}
	if bill.DueDate.IsZero() {
		return fmt.Errorf("%w: missing due date", ErrInvalidBill)
	}

	switch bill.Status {
	case model.BillStatusPending, model.BillStatusDueSoon, model.BillStatusOverdue,
		model.BillStatusPaid, model.BillStatusDismissed:
		// Valid status.
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidBill, bill.Status)
	}

	if bill.Amount < 0 {
		return fmt.Errorf("%w: negative amount", ErrInvalidBill)
	}
	return nil
}
