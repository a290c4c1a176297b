// Package model defines the core domain models used throughout the application.
package model

import (
	"strings"
	"time"
)

// EmailAddress is a display name plus address pair as it appears in a header.
type EmailAddress struct {
	Name    string
	Address string
}

// String renders the address in "Name <addr>" form.
func (a EmailAddress) String() string {
	if a.Name == "" {
		return a.Address
	}
	return a.Name + " <" + a.Address + ">"
}

// Domain returns the part of the address after the last '@', lowercased.
func (a EmailAddress) Domain() string {
	idx := strings.LastIndex(a.Address, "@")
	if idx < 0 || idx == len(a.Address)-1 {
		return ""
	}
	return strings.ToLower(a.Address[idx+1:])
}

// Message represents a single raw email record from the mail collaborator.
// Messages are immutable once ingested; derived state lives elsewhere.
type Message struct {
	Timestamp time.Time
	ID        string
	Subject   string
	Body      string
	Snippet   string
	From      EmailAddress
	To        []EmailAddress
	Read      bool
}

// Text returns the best available body text for the message.
func (m *Message) Text() string {
	if m.Body != "" {
		return m.Body
	}
	return m.Snippet
}
