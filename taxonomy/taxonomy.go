// Package taxonomy checks minted entries against the naming taxonomy before
// they are activated.
package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/nomis52/journeyid/mint"
	"github.com/nomis52/journeyid/registry"
)

// Field names accepted by PolicyValidator.
const (
	FieldCampaignID   = "campaign_id"
	FieldCompositeKey = "composite_key"
	FieldUTMSource    = "utm_source"
	FieldUTMMedium    = "utm_medium"
	FieldUTMCampaign  = "utm_campaign"
	FieldCMJourneyID  = "cm_journey_id"
	FieldCMBrand      = "cm_brand"
	FieldCMAudience   = "cm_audience"
	FieldCMSegment    = "cm_segment"
)

// DefaultRequiredFields must be present on every entry.
var DefaultRequiredFields = []string{
	FieldCampaignID,
	FieldUTMSource,
	FieldUTMCampaign,
	FieldCMJourneyID,
	FieldCMBrand,
}

var fieldGetters = map[string]func(registry.Entry) string{
	FieldCampaignID:   func(e registry.Entry) string { return e.CampaignID },
	FieldCompositeKey: func(e registry.Entry) string { return e.CompositeKey },
	FieldUTMSource:    func(e registry.Entry) string { return e.UTM.Source },
	FieldUTMMedium:    func(e registry.Entry) string { return e.UTM.Medium },
	FieldUTMCampaign:  func(e registry.Entry) string { return e.UTM.Campaign },
	FieldCMJourneyID:  func(e registry.Entry) string { return e.CM.JourneyID },
	FieldCMBrand:      func(e registry.Entry) string { return e.CM.Brand },
	FieldCMAudience:   func(e registry.Entry) string { return e.CM.Audience },
	FieldCMSegment:    func(e registry.Entry) string { return e.CM.Segment },
}

var (
	campaignIDPattern = regexp.MustCompile(`^CMP-[A-Z0-9]+-\d{4}-\d{3}$`)
	paramPattern      = regexp.MustCompile(`^[a-z0-9_-]*$`)
	termPattern       = regexp.MustCompile(`^SEQ-\d+$`)
)

// Issue is a single taxonomy violation.
type Issue struct {
	EntryID      string `json:"entryId"`
	CompositeKey string `json:"compositeKey"`
	Field        string `json:"field"`
	Message      string `json:"message"`
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s: %s %s", i.CompositeKey, i.Field, i.Message)
}

// Report is the outcome of a validation run.
type Report struct {
	Valid   bool    `json:"valid"`
	Checked int     `json:"checked"`
	Issues  []Issue `json:"issues,omitempty"`
}

// Err joins the issues into one error, or returns nil if there are none.
func (r Report) Err() error {
	errs := make([]error, 0, len(r.Issues))
	for _, i := range r.Issues {
		errs = append(errs, i)
	}
	return errors.Join(errs...)
}

// Validator checks a set of entries.
type Validator interface {
	Validate(ctx context.Context, entries []registry.Entry) (Report, error)
}

// ValidatorFunc adapts a boolean check to a Validator.
type ValidatorFunc func(ctx context.Context, entries []registry.Entry) (bool, error)

// Validate implements Validator.
func (f ValidatorFunc) Validate(ctx context.Context, entries []registry.Entry) (Report, error) {
	ok, err := f(ctx, entries)
	if err != nil {
		return Report{}, err
	}
	return Report{Valid: ok, Checked: len(entries)}, nil
}

// PolicyValidator requires a set of fields to be non-empty on every entry and
// every present identifier and tracking parameter to be well formed.
type PolicyValidator struct {
	required []string
}

// NewPolicyValidator creates a validator for the given fields. An empty list
// selects DefaultRequiredFields. Unknown field names are an error.
func NewPolicyValidator(required []string) (*PolicyValidator, error) {
	if len(required) == 0 {
		required = DefaultRequiredFields
	}
	var unknown []string
	for _, f := range required {
		if _, ok := fieldGetters[f]; !ok {
			unknown = append(unknown, f)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown required fields: %s", strings.Join(unknown, ", "))
	}
	return &PolicyValidator{required: append([]string(nil), required...)}, nil
}

// RequiredFields returns the fields checked by the validator.
func (v *PolicyValidator) RequiredFields() []string {
	return append([]string(nil), v.required...)
}

// Validate implements Validator. An empty entry list is invalid.
func (v *PolicyValidator) Validate(ctx context.Context, entries []registry.Entry) (Report, error) {
	report := Report{Checked: len(entries)}
	if len(entries) == 0 {
		report.Issues = append(report.Issues, Issue{Field: FieldCompositeKey, Message: "no entries to validate"})
		return report, nil
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		for _, f := range v.required {
			if strings.TrimSpace(fieldGetters[f](e)) == "" {
				report.Issues = append(report.Issues, issue(e, f, "is required"))
			}
		}
		report.Issues = append(report.Issues, formatIssues(e)...)
	}

	report.Valid = len(report.Issues) == 0
	return report, nil
}

func issue(e registry.Entry, field, message string) Issue {
	return Issue{EntryID: e.ID, CompositeKey: e.CompositeKey, Field: field, Message: message}
}

// formatIssues checks the shape of every non-blank identifier and parameter.
// Blank values are left to the required field check.
func formatIssues(e registry.Entry) []Issue {
	var issues []Issue
	if present(e.CompositeKey) && !mint.KeyPattern.MatchString(e.CompositeKey) {
		issues = append(issues, issue(e, FieldCompositeKey, "does not match the composite key grammar"))
	}
	if present(e.CampaignID) && !campaignIDPattern.MatchString(e.CampaignID) {
		issues = append(issues, issue(e, FieldCampaignID, "is not a campaign id"))
	}

	for _, values := range []url.Values{e.UTM.Values(), e.CM.Values()} {
		for _, name := range slices.Sorted(maps.Keys(values)) {
			value := values.Get(name)
			if !present(value) {
				continue
			}
			if name == "utm_term" {
				if !termPattern.MatchString(value) {
					issues = append(issues, issue(e, name, "is not a SEQ-{n} sequence marker"))
				}
				continue
			}
			if !paramPattern.MatchString(value) {
				issues = append(issues, issue(e, name, "contains characters outside [a-z0-9_-]"))
			}
		}
	}
	return issues
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}
