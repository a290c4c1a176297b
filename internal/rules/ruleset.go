// Package rules provides the versioned category taxonomy and the rule set
// used for rule-based message classification.
package rules

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mailmind/mailmind/internal/common"
	"github.com/mailmind/mailmind/internal/model"
)

// Rule maps matching signals to one category. Keywords are matched as
// case-insensitive substrings of the message's normalized text; sender
// patterns are regular expressions applied to the sender name and address.
type Rule struct {
	Name           string   `mapstructure:"name"`
	Category       string   `mapstructure:"category"`
	Keywords       []string `mapstructure:"keywords"`
	SenderPatterns []string `mapstructure:"sender_patterns"`
	Weight         int      `mapstructure:"weight"`
	SenderBonus    int      `mapstructure:"sender_bonus"`
	SubjectBonus   int      `mapstructure:"subject_bonus"`
}

// compiledRule holds a rule with its sender regexes compiled and keywords
// lowercased.
type compiledRule struct {
	category      model.Category
	name          string
	keywords      []string
	senderRegexes []*regexp.Regexp
	weight        int
	senderBonus   int
	subjectBonus  int
}

// RuleSet is an immutable, versioned collection of compiled rules. The
// version hash changes whenever any rule changes, which is what invalidates
// cached classifications.
type RuleSet struct {
	version string
	rules   []compiledRule
}

// NewRuleSet compiles the given rules. An empty rule list is a fatal
// configuration error: silent misclassification would be worse than a
// visible failure.
func NewRuleSet(ruleList []Rule) (*RuleSet, error) {
	if len(ruleList) == 0 {
		return nil, common.NewUserError("no classification rules configured", common.ErrNoRulesConfigured)
	}

	compiled := make([]compiledRule, 0, len(ruleList))
	for _, r := range ruleList {
		category := model.Category(strings.ToLower(r.Category))
		if !category.Valid() {
			return nil, fmt.Errorf("rule %q: unknown category %q: %w", r.Name, r.Category, common.ErrInvalidConfig)
		}

		weight := r.Weight
		if weight <= 0 {
			weight = 1
		}

		cr := compiledRule{
			name:         r.Name,
			category:     category,
			weight:       weight,
			senderBonus:  r.SenderBonus,
			subjectBonus: r.SubjectBonus,
		}

		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				cr.keywords = append(cr.keywords, kw)
			}
		}

		for _, p := range r.SenderPatterns {
			if !strings.HasPrefix(p, "(?i)") {
				p = "(?i)" + p
			}
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("rule %q: failed to compile sender pattern: %w", r.Name, err)
			}
			cr.senderRegexes = append(cr.senderRegexes, re)
		}

		compiled = append(compiled, cr)
	}

	return &RuleSet{
		rules:   compiled,
		version: hashRules(ruleList),
	}, nil
}

// Version returns the content hash of the rule set.
func (rs *RuleSet) Version() string {
	return rs.version
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// Evaluation is the aggregate rule score for one category.
type Evaluation struct {
	Category model.Category
	RuleName string
	Score    int
}

// Evaluate scores the message against every rule and returns per-category
// aggregates sorted best-first. Ties break by the fixed category priority
// order (emergency > important > subscription > work > personal > regular).
func (rs *RuleSet) Evaluate(subject, body string, from model.EmailAddress) []Evaluation {
	subjectLower := strings.ToLower(subject)
	sender := strings.ToLower(from.String())
	text := subjectLower + " " + strings.ToLower(body) + " " + sender

	scores := make(map[model.Category]int)
	ruleNames := make(map[model.Category]string)

	for _, r := range rs.rules {
		score := 0

		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				score += r.weight
				if r.subjectBonus > 0 && strings.Contains(subjectLower, kw) {
					score += r.subjectBonus
				}
			}
		}

		for _, re := range r.senderRegexes {
			if re.MatchString(sender) {
				bonus := r.senderBonus
				if bonus <= 0 {
					bonus = r.weight
				}
				score += bonus
			}
		}

		if score > 0 {
			if score > scores[r.category] || ruleNames[r.category] == "" {
				ruleNames[r.category] = r.name
			}
			scores[r.category] += score
		}
	}

	evals := make([]Evaluation, 0, len(scores))
	for cat, score := range scores {
		evals = append(evals, Evaluation{
			Category: cat,
			Score:    score,
			RuleName: ruleNames[cat],
		})
	}

	sort.Slice(evals, func(i, j int) bool {
		if evals[i].Score != evals[j].Score {
			return evals[i].Score > evals[j].Score
		}
		return evals[i].Category.Priority() > evals[j].Category.Priority()
	})

	return evals
}

// hashRules produces a deterministic content hash over the rule definitions.
func hashRules(ruleList []Rule) string {
	h := sha256.New()
	for _, r := range ruleList {
		fmt.Fprintf(h, "%s\x1f%s\x1f%d\x1f%d\x1f%d\x1f", r.Name, r.Category, r.Weight, r.SenderBonus, r.SubjectBonus)
		for _, kw := range r.Keywords {
			fmt.Fprintf(h, "%s\x1e", kw)
		}
		for _, p := range r.SenderPatterns {
			fmt.Fprintf(h, "%s\x1e", p)
		}
		fmt.Fprint(h, "\x1d")
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
