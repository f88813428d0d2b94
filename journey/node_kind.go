package journey

import "fmt"

// NodeKind identifies what a journey node does. The set of kinds is closed:
// adding a kind means adding a constant here and a case to every exhaustive
// switch over NodeKind (see AllKinds).
type NodeKind string

const (
	KindEntry       NodeKind = "entry"
	KindEmail       NodeKind = "email"
	KindWeb         NodeKind = "web"
	KindMobilePush  NodeKind = "mobile-push"
	KindSocial      NodeKind = "social"
	KindPaidSocial  NodeKind = "paid-social"
	KindPaidSearch  NodeKind = "paid-search"
	KindPaidDisplay NodeKind = "paid-display"
	KindPrint       NodeKind = "print"
	KindTVRadio     NodeKind = "tv-radio"
	KindOutOfHome   NodeKind = "out-of-home"
	KindWait        NodeKind = "wait"
	KindDecision    NodeKind = "decision"
	KindABTest      NodeKind = "ab-test"
	KindAttribution NodeKind = "attribution"
	KindScore       NodeKind = "score"
	KindSuppression NodeKind = "suppression"
)

// AllKinds lists every known node kind in declaration order.
var AllKinds = []NodeKind{
	KindEntry,
	KindEmail,
	KindWeb,
	KindMobilePush,
	KindSocial,
	KindPaidSocial,
	KindPaidSearch,
	KindPaidDisplay,
	KindPrint,
	KindTVRadio,
	KindOutOfHome,
	KindWait,
	KindDecision,
	KindABTest,
	KindAttribution,
	KindScore,
	KindSuppression,
}

// ParseNodeKind converts a string into a NodeKind, rejecting unknown kinds.
func ParseNodeKind(s string) (NodeKind, error) {
	k := NodeKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown node kind %q", s)
	}
	return k, nil
}

// Valid returns true if k is one of the known node kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case KindEntry, KindEmail, KindWeb, KindMobilePush, KindSocial, KindPaidSocial,
		KindPaidSearch, KindPaidDisplay, KindPrint, KindTVRadio, KindOutOfHome,
		KindWait, KindDecision, KindABTest, KindAttribution, KindScore, KindSuppression:
		return true
	default:
		return false
	}
}

// IsChannel returns true for kinds that deliver content to the audience.
// Wait, decision, test and scoring nodes are flow control only.
func (k NodeKind) IsChannel() bool {
	switch k {
	case KindEmail, KindWeb, KindMobilePush, KindSocial, KindPaidSocial,
		KindPaidSearch, KindPaidDisplay, KindPrint, KindTVRadio, KindOutOfHome:
		return true
	default:
		return false
	}
}

// String returns the wire representation of the kind.
func (k NodeKind) String() string {
	return string(k)
}
