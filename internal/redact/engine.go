package redact

// Apply runs every recognized rule named in enabled against text, in the
// fixed rule order, and returns the redacted text together with a per-rule
// match indicator: 1 if that rule's substitution changed the text, 0 if it
// matched nothing. The indicator is binary, not a match count.
//
// Unrecognized rule names are skipped silently and get no entry in the
// indicator map. Apply is pure and safe for concurrent use.
func Apply(text string, enabled []string) (string, map[string]int) {
	want := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		want[name] = true
	}

	counts := make(map[string]int, len(enabled))
	out := text

	for _, rule := range orderedRules {
		if !want[rule.Name] {
			continue
		}

		replaced := rule.Pattern.ReplaceAllString(out, rule.Replacement)
		if replaced != out {
			counts[rule.Name] = 1
		} else {
			counts[rule.Name] = 0
		}
		out = replaced
	}

	return out, counts
}
