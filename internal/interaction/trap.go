package interaction

import (
	"regexp"

	"github.com/ghostwire/ghostwire/internal/domhost"
	"github.com/ghostwire/ghostwire/internal/protocol"
	"github.com/ghostwire/ghostwire/internal/tuning"
)

// honeypotClassPattern matches the class-name trap list from spec
// §4.3 step 3.
var honeypotClassPattern = regexp.MustCompile(`(?i)\b(ghost|sr-only|visually-hidden|trap|honey|offscreen|off-screen)\b`)

// checkAvoid reports whether el matches any rule in avoid, returning
// ReasonAvoided if so. Selectors are matched by re-querying the
// document and checking set membership, since domhost.Element carries
// no back-reference to "the selector that found it".
func checkAvoid(doc domhost.Document, el *domhost.Element, avoid tuning.Ruleset) (protocol.RefusalReason, bool) {
	for _, id := range avoid.IDs {
		if el.ID == id {
			return protocol.ReasonAvoided, true
		}
	}
	for _, c := range avoid.Classes {
		if el.HasClass(c) {
			return protocol.ReasonAvoided, true
		}
	}
	for _, a := range avoid.Attributes {
		if _, ok := el.Attr(a); ok {
			return protocol.ReasonAvoided, true
		}
	}
	for _, sel := range avoid.Selectors {
		for _, m := range doc.QuerySelectorAll(sel) {
			if m == el {
				return protocol.ReasonAvoided, true
			}
		}
	}
	return "", false
}

// checkTraps runs the ordered honeypot/visibility ladder from spec
// §4.3 step 3, returning the first matching reason.
func checkTraps(el *domhost.Element) (protocol.RefusalReason, bool) {
	if el.Tag == "svg" || ancestorIsSVG(el) {
		return protocol.ReasonSVGElement, true
	}
	if v, ok := el.Attr("aria-hidden"); ok && v == "true" {
		return protocol.ReasonAriaHidden, true
	}
	if !el.Style.HasOffsetParent && el.Style.Display != "contents" {
		return protocol.ReasonNoOffsetParent, true
	}
	for _, c := range el.Classes {
		if honeypotClassPattern.MatchString(c) {
			return protocol.ReasonHoneypotClass, true
		}
	}
	if el.Style.Opacity == 0 {
		return protocol.ReasonOpacityZero, true
	}
	if el.Style.VisibilityHidden {
		return protocol.ReasonVisibilityHidden, true
	}
	if el.Box.Width < 5 || el.Box.Height < 5 {
		return protocol.ReasonSubPixel, true
	}
	if el.Box.Empty() {
		return protocol.ReasonNoBoundingBox, true
	}
	return "", false
}

func ancestorIsSVG(el *domhost.Element) bool {
	for p := el.Parent; p != nil; p = p.Parent {
		if p.Tag == "svg" {
			return true
		}
	}
	return false
}
