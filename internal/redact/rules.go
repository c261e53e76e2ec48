package redact

import "regexp"

// Rule represents a single redaction rule
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// Sentinel tokens substituted for matched PII. They contain no '@' and no
// digits, so re-applying the rules to already-redacted text is a no-op.
const (
	EmailSentinel = "[REDACTED_EMAIL]"
	PhoneSentinel = "[REDACTED_PHONE]"
)

// orderedRules is the fixed application order: email before phone. The phone
// pattern is digit-and-separator based and must never see text where an email
// substitution is still pending, so the order is a constant sequence rather
// than whatever order the rules document lists.
var orderedRules = []Rule{
	{
		Name:        "email",
		Pattern:     regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
		Replacement: EmailSentinel,
	},
	{
		Name:        "phone",
		Pattern:     regexp.MustCompile(`\b\+?[0-9][0-9 ().\-]{6,}[0-9]\b`),
		Replacement: PhoneSentinel,
	},
}

// Rules returns the recognized rules in application order.
func Rules() []Rule {
	out := make([]Rule, len(orderedRules))
	copy(out, orderedRules)
	return out
}
