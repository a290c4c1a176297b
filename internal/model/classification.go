package model

import (
	"strings"
	"time"
)

// Category is a message priority category.
type Category string

// Message categories, from most to least urgent.
const (
	CategoryEmergency    Category = "emergency"
	CategoryImportant    Category = "important"
	CategoryWork         Category = "work"
	CategoryPersonal     Category = "personal"
	CategorySubscription Category = "subscription"
	CategoryRegular      Category = "regular"
)

// categoryPriority is the fixed tie-break order: higher wins.
var categoryPriority = map[Category]int{
	CategoryEmergency:    6,
	CategoryImportant:    5,
	CategorySubscription: 4,
	CategoryWork:         3,
	CategoryPersonal:     2,
	CategoryRegular:      1,
}

// Priority returns the tie-break rank of the category (higher wins).
func (c Category) Priority() int {
	return categoryPriority[c]
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryPriority[c]
	return ok
}

// Categories returns all known categories in tie-break order (highest first).
func Categories() []Category {
	return []Category{
		CategoryEmergency,
		CategoryImportant,
		CategorySubscription,
		CategoryWork,
		CategoryPersonal,
		CategoryRegular,
	}
}

// ParseCategory maps an arbitrary category string onto the known taxonomy.
// Anything outside the taxonomy (including AI output) maps to regular.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c
	}
	return CategoryRegular
}

// ConfidenceSource indicates how a message's category was decided.
type ConfidenceSource string

// Confidence sources.
const (
	SourceRule         ConfidenceSource = "rule"
	SourceAI           ConfidenceSource = "ai"
	SourceRuleFallback ConfidenceSource = "rule-fallback"
)

// ClassifiedMessage is a Message with its derived category attached.
// Classification of the same message ID is deterministic for a given
// rule-set version.
type ClassifiedMessage struct {
	ClassifiedAt time.Time
	Category     Category
	Source       ConfidenceSource
	RuleVersion  string
	Message      Message
	Score        int
}
