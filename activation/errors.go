package activation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nomis52/journeyid/taxonomy"
)

var (
	// ErrInvalidRequest is matched by every *RequestError.
	ErrInvalidRequest = errors.New("invalid activation request")
	// ErrValidationFailed is matched by every *ValidationFailure.
	ErrValidationFailed = errors.New("taxonomy validation failed")
	// ErrExportFailed is matched by every *ExportFailure.
	ErrExportFailed = errors.New("manifest export failed")
)

// RequestError reports a request field that is missing or malformed.
type RequestError struct {
	Field  string
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid activation request: %s %s", e.Field, e.Reason)
}

func (e *RequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// ValidationFailure is returned when minted entries fail taxonomy validation
// and the caller did not force activation. The entries stay MINTED.
type ValidationFailure struct {
	CampaignID string
	Issues     []taxonomy.Issue
}

func (e *ValidationFailure) Error() string {
	if len(e.Issues) == 0 {
		return fmt.Sprintf("taxonomy validation failed for %s", e.CampaignID)
	}
	shown := e.Issues
	if len(shown) > 3 {
		shown = shown[:3]
	}
	msgs := make([]string, 0, len(shown))
	for _, i := range shown {
		msgs = append(msgs, i.Error())
	}
	more := ""
	if extra := len(e.Issues) - len(shown); extra > 0 {
		more = fmt.Sprintf(" (and %d more)", extra)
	}
	return fmt.Sprintf("taxonomy validation failed for %s: %s%s", e.CampaignID, strings.Join(msgs, "; "), more)
}

func (e *ValidationFailure) Is(target error) bool {
	return target == ErrValidationFailed
}

// ExportFailure is returned when the manifest could not be exported. Err is
// context.DeadlineExceeded when the export timed out.
type ExportFailure struct {
	CampaignID string
	Err        error
}

func (e *ExportFailure) Error() string {
	return fmt.Sprintf("exporting manifest for %s: %v", e.CampaignID, e.Err)
}

func (e *ExportFailure) Is(target error) bool {
	return target == ErrExportFailed
}

func (e *ExportFailure) Unwrap() error {
	return e.Err
}
