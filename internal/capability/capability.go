// Package capability resolves what site visitors may do with a listing's
// contact data, based on the listing's paid tier.
//
// Gating is based on the LISTING's tier (what the vendor pays for), not the
// viewer's: visitors are not paying to browse, vendors are paying to be
// contacted.
//
// Permission matrix (source of truth):
//   - free: contact fields visible as text only, no mailto/tel, no links
//   - standard: website + socials clickable, email/phone text only
//   - pro (and premium): tel/mailto enabled, lead form available
package capability

import "strings"

// Tier is the canonical paid plan level of a listing.
type Tier string

const (
	TierFree     Tier = "free"
	TierStandard Tier = "standard"
	TierPro      Tier = "pro"
	TierPremium  Tier = "premium"
)

// CTA values consumed by the page-rendering layer.
const (
	CTAViewProfile  = "VIEW_PROFILE"
	CTAVisitWebsite = "VISIT_WEBSITE"
	CTAContactModal = "CONTACT_MODAL"
)

// Viewer is the per-request viewer context. Never stored.
type Viewer struct {
	// IsAdmin unlocks the maximal set for internal QA. Authorizing who may
	// set it is the caller's responsibility; this package never checks.
	IsAdmin bool
	// IsLoggedIn gates the lead form. Anonymous resolution (no explicit
	// viewer) treats it as true; use AnonymousViewer for that default.
	IsLoggedIn bool
}

// AnonymousViewer is the default viewer for public listing pages: not an
// admin, and not explicitly logged out, so the lead form stays available on
// pro listings.
func AnonymousViewer() Viewer {
	return Viewer{IsLoggedIn: true}
}

// Set is the resolved capability set for one listing and one viewer.
// Derived, never persisted; recomputed on every read.
type Set struct {
	CanClickWebsite bool   `json:"can_click_website"`
	CanClickSocials bool   `json:"can_click_socials"`
	CanClickEmail   bool   `json:"can_click_email"`
	CanClickPhone   bool   `json:"can_click_phone"`
	ShowLeadForm    bool   `json:"show_lead_form"`
	ObfuscateEmail  bool   `json:"obfuscate_email"`
	ObfuscatePhone  bool   `json:"obfuscate_phone"`
	CTA             string `json:"cta"`
}

// NormalizeTier maps a stored plan string plus the comped flag onto a
// canonical tier. This is the only place tier strings are interpreted.
//
// Comped listings are treated as pro regardless of the stored plan. Substring
// matching keeps legacy plan labels ("Pro Plan Annual") mapping correctly.
// Anything unrecognized normalizes to free - the most restrictive tier.
func NormalizeTier(plan string, comped bool) Tier {
	if comped {
		return TierPro
	}
	p := strings.ToLower(plan)
	if strings.Contains(p, "pro") || strings.Contains(p, "premium") {
		return TierPro
	}
	if strings.Contains(p, "standard") {
		return TierStandard
	}
	return TierFree
}

// Resolve returns the capability set for a listing tier and viewer.
// Pure, total and deterministic: defined for every tier value (unknown tiers
// resolve as free) and free of side effects.
func Resolve(tier Tier, viewer Viewer) Set {
	if viewer.IsAdmin {
		return maximalSet()
	}

	isPro := tier == TierPro || tier == TierPremium
	isStandard := tier == TierStandard || isPro

	cta := CTAViewProfile
	if isStandard {
		cta = CTAVisitWebsite
	}
	if isPro {
		cta = CTAContactModal
	}

	return Set{
		CanClickWebsite: isStandard,
		CanClickSocials: isStandard,
		CanClickEmail:   isPro,
		CanClickPhone:   isPro,
		ShowLeadForm:    isPro && viewer.IsLoggedIn,
		ObfuscateEmail:  !isPro,
		ObfuscatePhone:  false, // phones are already less scrapable
		CTA:             cta,
	}
}

// ResolvePlan normalizes and resolves in one step, for callers holding the
// raw stored fields.
func ResolvePlan(plan string, comped bool, viewer Viewer) Set {
	return Resolve(NormalizeTier(plan, comped), viewer)
}

func maximalSet() Set {
	return Set{
		CanClickWebsite: true,
		CanClickSocials: true,
		CanClickEmail:   true,
		CanClickPhone:   true,
		ShowLeadForm:    true,
		ObfuscateEmail:  false,
		ObfuscatePhone:  false,
		CTA:             CTAContactModal,
	}
}

// ObfuscateEmail rewrites an address for display, e.g. "a@b.com" becomes
// "a [at] b [dot] com". Reduces casual harvesting only - this is display
// friction, not a security control.
func ObfuscateEmail(email string) string {
	s := strings.Replace(email, "@", " [at] ", 1)
	return strings.ReplaceAll(s, ".", " [dot] ")
}

// FormatPhoneDisplay returns the phone as-is; phones are not obfuscated.
func FormatPhoneDisplay(phone string) string {
	return phone
}
