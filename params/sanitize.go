// Package params derives URL tracking parameters from the identity hierarchy.
//
// Two parameter sets are produced for every registry entry: the standard UTM
// set (utm_source, utm_medium, utm_campaign, utm_content, utm_term) and the
// custom CM set (cm_journey_id, cm_node_seq, cm_brand, ...). All free text is
// passed through SanitizeToken first, so values only ever contain [a-z0-9_].
// The one exception is utm_term, which carries the SEQ-{n} sequence marker.
package params

import "strings"

// SanitizeToken lower-cases s, replaces every run of characters outside
// [a-z0-9] with a single underscore and trims leading and trailing
// underscores. The result is empty or matches ^[a-z0-9]+(_[a-z0-9]+)*$, and
// sanitizing it again returns it unchanged.
func SanitizeToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	pendingSep := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}

	return b.String()
}
