package params

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/nomis52/journeyid/journey"
)

// Level is the identity level parameters are built for.
type Level int

const (
	LevelCampaign Level = iota
	LevelSequence
	LevelContent
)

// String returns the registry name of the level.
func (l Level) String() string {
	switch l {
	case LevelCampaign:
		return "CAMPAIGN"
	case LevelSequence:
		return "SEQUENCE"
	case LevelContent:
		return "CONTENT"
	default:
		return "UNKNOWN"
	}
}

// CampaignNodeSeq is the cm_node_seq value of campaign level entries.
const CampaignNodeSeq = "-"

// Context carries everything the builders need for one entry. Sequence,
// Kind, ContentID and MicrosegmentID are ignored at levels that do not use
// them.
type Context struct {
	CampaignName    string
	CampaignID      string
	Brand           string
	Audience        string
	Segment         string
	TherapeuticArea string
	Indication      string

	Kind           journey.NodeKind
	Sequence       int
	ContentID      string
	MicrosegmentID string
}

// UTM is the standard five-key tracking parameter set.
type UTM struct {
	Source   string `json:"utm_source"`
	Medium   string `json:"utm_medium"`
	Campaign string `json:"utm_campaign"`
	Content  string `json:"utm_content,omitempty"`
	Term     string `json:"utm_term,omitempty"`
}

// Values returns the non-empty parameters keyed by their query names.
func (u UTM) Values() url.Values {
	v := url.Values{}
	setIfPresent(v, "utm_source", u.Source)
	setIfPresent(v, "utm_medium", u.Medium)
	setIfPresent(v, "utm_campaign", u.Campaign)
	setIfPresent(v, "utm_content", u.Content)
	setIfPresent(v, "utm_term", u.Term)
	return v
}

// CM is the custom tracking parameter set carrying brand and audience context.
type CM struct {
	JourneyID       string `json:"cm_journey_id"`
	NodeSeq         string `json:"cm_node_seq"`
	Brand           string `json:"cm_brand"`
	Audience        string `json:"cm_audience"`
	Segment         string `json:"cm_segment"`
	TherapeuticArea string `json:"cm_therapeutic_area"`
	Indication      string `json:"cm_indication,omitempty"`
	MicrosegmentID  string `json:"cm_microsegment_id,omitempty"`
}

// Values returns the non-empty parameters keyed by their query names.
func (c CM) Values() url.Values {
	v := url.Values{}
	setIfPresent(v, "cm_journey_id", c.JourneyID)
	setIfPresent(v, "cm_node_seq", c.NodeSeq)
	setIfPresent(v, "cm_brand", c.Brand)
	setIfPresent(v, "cm_audience", c.Audience)
	setIfPresent(v, "cm_segment", c.Segment)
	setIfPresent(v, "cm_therapeutic_area", c.TherapeuticArea)
	setIfPresent(v, "cm_indication", c.Indication)
	setIfPresent(v, "cm_microsegment_id", c.MicrosegmentID)
	return v
}

func setIfPresent(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

// SequenceTerm returns the utm_term marker for a sequence number.
func SequenceTerm(n int) string {
	return "SEQ-" + strconv.Itoa(n)
}

// BuildUTM assembles the UTM parameters for the given level.
//
// Campaign level parameters use the "multi" medium and carry no content or
// term. Sequence and content levels take their medium from the node kind and
// their term from the sequence number; content level also sets utm_content.
func BuildUTM(level Level, ctx Context) UTM {
	u := UTM{
		Source:   SanitizeToken(ctx.Brand),
		Campaign: SanitizeToken(ctx.CampaignName),
	}

	switch level {
	case LevelCampaign:
		u.Medium = MediumMulti
	case LevelSequence:
		u.Medium = ChannelToMedium(ctx.Kind)
		u.Term = SequenceTerm(ctx.Sequence)
	case LevelContent:
		u.Medium = ChannelToMedium(ctx.Kind)
		u.Term = SequenceTerm(ctx.Sequence)
		u.Content = SanitizeToken(ctx.ContentID)
	}

	return u
}

// BuildCM assembles the CM parameters for the given level.
func BuildCM(level Level, ctx Context) CM {
	c := CM{
		JourneyID:       SanitizeToken(ctx.CampaignID),
		Brand:           SanitizeToken(ctx.Brand),
		Audience:        SanitizeToken(ctx.Audience),
		Segment:         SanitizeToken(ctx.Segment),
		TherapeuticArea: SanitizeToken(ctx.TherapeuticArea),
		Indication:      SanitizeToken(ctx.Indication),
	}

	switch level {
	case LevelCampaign:
		c.NodeSeq = CampaignNodeSeq
	case LevelSequence:
		c.NodeSeq = strconv.Itoa(ctx.Sequence)
	case LevelContent:
		c.NodeSeq = strconv.Itoa(ctx.Sequence)
		c.MicrosegmentID = SanitizeToken(ctx.MicrosegmentID)
	}

	return c
}

// Merge combines both parameter sets into one query.
func Merge(u UTM, c CM) url.Values {
	merged := u.Values()
	for k, vs := range c.Values() {
		merged[k] = vs
	}
	return merged
}

// TrackingURL appends the merged, percent-encoded parameters to baseURL.
// Parameters already present on baseURL are kept; tracking keys replace them.
func TrackingURL(baseURL string, u UTM, c CM) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing content url %q: %w", baseURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("content url %q must be absolute", baseURL)
	}

	query := parsed.Query()
	for k, vs := range Merge(u, c) {
		query[k] = vs
	}
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}
