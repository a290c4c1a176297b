package rules

// DefaultRules returns the built-in six-category taxonomy. Deployments can
// replace or extend these via the rules section of the config file.
func DefaultRules() []Rule {
	return []Rule{
		// Emergency signals - known critical senders and urgency language.
		{
			Name:     "Security Alerts",
			Category: "emergency",
			Keywords: []string{
				"security alert", "suspicious activity", "unauthorized",
				"account locked", "account suspended", "fraud", "compromised",
			},
			SenderPatterns: []string{
				`\b(security|fraud|alerts?)@`,
				`no-?reply@.*\b(bank|chase|wellsfargo|citi)\b`,
			},
			Weight:       3,
			SenderBonus:  6,
			SubjectBonus: 2,
		},
		{
			Name:     "Urgent Language",
			Category: "emergency",
			Keywords: []string{
				"urgent", "immediately", "emergency", "act now", "final warning",
			},
			Weight:       2,
			SubjectBonus: 2,
		},

		// Important but not an emergency.
		{
			Name:     "Action Required",
			Category: "important",
			Keywords: []string{
				"action required", "deadline", "expires", "expiring",
				"final notice", "verify your", "confirmation required",
				"response needed",
			},
			Weight:       2,
			SubjectBonus: 2,
		},

		// Billing and subscription notices.
		{
			Name:     "Billing Notices",
			Category: "subscription",
			Keywords: []string{
				"invoice", "bill", "billing", "payment due", "amount due",
				"statement", "autopay", "minimum payment", "balance due",
			},
			SenderPatterns: []string{
				`\b(billing|invoices?|statements?)@`,
			},
			Weight:       2,
			SenderBonus:  4,
			SubjectBonus: 2,
		},
		{
			Name:     "Subscriptions",
			Category: "subscription",
			Keywords: []string{
				"subscription", "renewal", "renews", "membership", "free trial",
				"plan upgrade",
			},
			Weight:       2,
			SubjectBonus: 1,
		},

		// Work heuristics - collaboration tooling and office vocabulary.
		{
			Name:     "Work Tools",
			Category: "work",
			SenderPatterns: []string{
				`@(github|gitlab|atlassian|slack|asana|linear|pagerduty)\.`,
			},
			Keywords: []string{
				"meeting", "standup", "sprint", "pull request", "code review",
				"ticket", "deployment", "quarterly",
			},
			Weight:      1,
			SenderBonus: 4,
		},

		// Personal correspondence.
		{
			Name:     "Personal",
			Category: "personal",
			Keywords: []string{
				"birthday", "anniversary", "dinner", "weekend", "photos",
				"family", "vacation", "congratulations",
			},
			Weight: 1,
		},
	}
}
