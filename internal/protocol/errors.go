package protocol

import "errors"

// Transport-layer errors.
var (
	ErrExtensionNotConnected  = errors.New("extension-not-connected")
	ErrExtensionDisconnected  = errors.New("extension-disconnected")
	ErrConnectionTimeout      = errors.New("connection-timeout")
)

// Dispatch-layer errors.
var (
	ErrUnknownAction   = errors.New("unknown-action")
	ErrInvalidParams   = errors.New("invalid-params")
	ErrNoTabs          = errors.New("no-tabs")
	ErrCommandTimeout  = errors.New("command-timeout")
)

// Handle-layer errors.
var (
	ErrHandleNotFound = errors.New("handle-not-found")
	ErrHandleGCd      = errors.New("handle-gc'd")
)

// Selector-layer errors.
var (
	ErrElementNotFound = errors.New("element-not-found")
)

// Evaluation-layer errors.
var (
	ErrEvaluateTimedOut       = errors.New("evaluate-timed-out")
	ErrEvaluateFailedAllWorlds = errors.New("evaluate-failed-all-worlds")
)

// RefusalReason enumerates the structured, non-error outcomes of the
// human pipelines. These are never returned as `{id, error}` — they
// are a normal result with clicked/typed/cleared set to false.
type RefusalReason string

const (
	ReasonAvoided          RefusalReason = "avoided"
	ReasonAriaHidden       RefusalReason = "aria-hidden"
	ReasonNoOffsetParent   RefusalReason = "no-offsetParent"
	ReasonHoneypotClass    RefusalReason = "honeypot-class"
	ReasonOpacityZero      RefusalReason = "opacity-zero"
	ReasonVisibilityHidden RefusalReason = "visibility-hidden"
	ReasonSubPixel         RefusalReason = "sub-pixel"
	ReasonNoBoundingBox    RefusalReason = "no-bounding-box"
	ReasonSVGElement       RefusalReason = "svg-element"
	ReasonOffScreen        RefusalReason = "off-screen"
	ReasonElementDisappeared RefusalReason = "element-disappeared"
	ReasonElementShifted   RefusalReason = "element-shifted"
)
