package workflow

import (
	"fmt"
	"reflect"
	"strings"
)

// ActivityID identifies an activity by the import path of its package and
// its struct name.
//
// Example:
//   - ActivityID{Module: "github.com/nomis52/journeyid/activation", Type: "MintCampaign"}
type ActivityID struct {
	// Module is the full import path of the package containing the activity.
	Module string

	// Type is the struct name of the activity.
	Type string
}

// String returns "Module.Type".
func (id ActivityID) String() string {
	return fmt.Sprintf("%s.%s", id.Module, id.Type)
}

// IsValid returns true if both Module and Type are set.
func (id ActivityID) IsValid() bool {
	return id.Module != "" && id.Type != ""
}

// ShortString returns the last component of the module path plus the type,
// for example "activation.MintCampaign".
func (id ActivityID) ShortString() string {
	if id.Module == "" {
		return id.Type
	}
	pkg := id.Module
	if i := strings.LastIndex(pkg, "/"); i >= 0 && i < len(pkg)-1 {
		pkg = pkg[i+1:]
	}
	return fmt.Sprintf("%s.%s", pkg, id.Type)
}

// MarshalText renders the id in its short form so it can be used as a JSON
// object key.
func (id ActivityID) MarshalText() ([]byte, error) {
	return []byte(id.ShortString()), nil
}

// GetActivityID returns the ActivityID for an activity. Activities must be
// pointers to structs.
func GetActivityID(activity Activity) ActivityID {
	t := reflect.TypeOf(activity)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return ActivityID{
		Module: t.PkgPath(),
		Type:   t.Name(),
	}
}
