package mint

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nomis52/journeyid/registry"
)

// KeyPattern matches every composite key this package produces.
var KeyPattern = regexp.MustCompile(`^CMP-[A-Z0-9]+-\d{4}-\d{3}(/SEQ-\d+(/[A-Za-z0-9_-]+)?)?$`)

var keyParts = regexp.MustCompile(`^(CMP-([A-Z0-9]+)-(\d{4})-(\d{3}))(?:/SEQ-(\d+)(?:/([A-Za-z0-9_-]+))?)?$`)

// MaxCampaignCounter is the largest counter that fits the three digit suffix.
const MaxCampaignCounter = 999

// Key is a parsed composite key.
type Key struct {
	CampaignID string             `json:"campaignId"`
	Brand      string             `json:"brand"`
	Year       int                `json:"year"`
	Counter    int                `json:"counter"`
	Sequence   *int               `json:"sequence,omitempty"`
	ContentID  string             `json:"contentId,omitempty"`
	Level      registry.EntryType `json:"level"`
}

// ParseKey splits a composite key into its parts.
func ParseKey(key string) (Key, error) {
	m := keyParts.FindStringSubmatch(key)
	if m == nil {
		return Key{}, fmt.Errorf("%q is not a valid composite key", key)
	}

	year, _ := strconv.Atoi(m[3])
	counter, _ := strconv.Atoi(m[4])
	k := Key{
		CampaignID: m[1],
		Brand:      m[2],
		Year:       year,
		Counter:    counter,
		Level:      registry.TypeCampaign,
	}

	if m[5] != "" {
		seq, err := strconv.Atoi(m[5])
		if err != nil {
			return Key{}, fmt.Errorf("sequence in %q out of range: %w", key, err)
		}
		k.Sequence = &seq
		k.Level = registry.TypeSequence
	}
	if m[6] != "" {
		k.ContentID = m[6]
		k.Level = registry.TypeContent
	}
	return k, nil
}

// BrandCode upper-cases brand and strips everything but ASCII letters and
// digits.
func BrandCode(brand string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(brand) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CounterNamespace is the namespace campaign counters are kept in.
func CounterNamespace(brandCode string, year int) string {
	return fmt.Sprintf("%s-%04d", brandCode, year)
}

// CampaignID formats a campaign id.
func CampaignID(brandCode string, year, counter int) string {
	return fmt.Sprintf("CMP-%s-%04d-%03d", brandCode, year, counter)
}

// SequenceKey returns the composite key of a sequence entry.
func SequenceKey(campaignID string, seq int) string {
	return fmt.Sprintf("%s/SEQ-%d", campaignID, seq)
}

// ContentKey returns the composite key of a content entry.
func ContentKey(sequenceKey, contentID string) string {
	return sequenceKey + "/" + contentID
}

// DisplayKey returns the key shown to users. Content entries carry their
// microsegment as a fourth segment so that entries sharing a composite key
// can be told apart.
func DisplayKey(e registry.Entry) string {
	if e.Type == registry.TypeContent && e.MicrosegmentID != "" {
		return e.CompositeKey + "/" + e.MicrosegmentID
	}
	return e.CompositeKey
}
