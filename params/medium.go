package params

import "github.com/nomis52/journeyid/journey"

// MediumUnknown is returned for node kinds without a medium mapping.
const MediumUnknown = "unknown"

// MediumMulti is the medium used for campaign level parameters, which span
// every channel of the journey.
const MediumMulti = "multi"

// ChannelToMedium maps a journey node kind to the utm_medium token used for
// entries minted from nodes of that kind.
func ChannelToMedium(kind journey.NodeKind) string {
	switch kind {
	case journey.KindEntry:
		return "entry"
	case journey.KindEmail:
		return "email"
	case journey.KindWeb:
		return "web"
	case journey.KindMobilePush:
		return "push"
	case journey.KindSocial:
		return "social"
	case journey.KindPaidSocial:
		return "paid_social"
	case journey.KindPaidSearch:
		return "cpc"
	case journey.KindPaidDisplay:
		return "display"
	case journey.KindPrint:
		return "print"
	case journey.KindTVRadio:
		return "broadcast"
	case journey.KindOutOfHome:
		return "ooh"
	case journey.KindWait:
		return "wait"
	case journey.KindDecision:
		return "decision"
	case journey.KindABTest:
		return "ab_test"
	case journey.KindAttribution:
		return "attribution"
	case journey.KindScore:
		return "score"
	case journey.KindSuppression:
		return "suppression"
	default:
		return MediumUnknown
	}
}
