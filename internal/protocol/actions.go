package protocol

// Action is the dot-namespaced command name carried in every Request.
type Action string

// Tab actions — handled natively by the page-bridge against the host
// browser's extension APIs.
const (
	ActionTabsList             Action = "tabs.list"
	ActionTabsNavigate         Action = "tabs.navigate"
	ActionTabsCreate           Action = "tabs.create"
	ActionTabsClose            Action = "tabs.close"
	ActionTabsActivate         Action = "tabs.activate"
	ActionTabsReload           Action = "tabs.reload"
	ActionTabsWaitForNav       Action = "tabs.waitForNavigation"
	ActionTabsSetViewport      Action = "tabs.setViewport"
	ActionTabsScreenshot       Action = "tabs.screenshot"
)

// Cookie actions.
const (
	ActionCookiesGetAll Action = "cookies.getAll"
	ActionCookiesSet    Action = "cookies.set"
)

// Frame actions.
const (
	ActionFramesList Action = "frames.list"
)

// DOM read actions — never mutate the page, CSP-safe, routed to the
// interaction engine.
const (
	ActionDOMQuerySelector           Action = "dom.querySelector"
	ActionDOMQuerySelectorAll        Action = "dom.querySelectorAll"
	ActionDOMQuerySelectorWithin     Action = "dom.querySelectorWithin"
	ActionDOMQuerySelectorAllWithin  Action = "dom.querySelectorAllWithin"
	ActionDOMWaitForSelector         Action = "dom.waitForSelector"
	ActionDOMBoundingBox             Action = "dom.boundingBox"
	ActionDOMGetAttribute            Action = "dom.getAttribute"
	ActionDOMGetProperty             Action = "dom.getProperty"
	ActionDOMGetHTML                 Action = "dom.getHTML"
	ActionDOMElementHTML             Action = "dom.elementHTML"
	ActionDOMQueryAllInfo            Action = "dom.queryAllInfo"
	ActionDOMBatchQuery              Action = "dom.batchQuery"
	ActionDOMFindScrollable          Action = "dom.findScrollable"
	ActionDOMDiscoverElements        Action = "dom.discoverElements"
)

// DOM write actions. dom.click is, by mandatory coupling, the human
// click pipeline — there is no separate synthetic-click code path.
const (
	ActionDOMClick        Action = "dom.click"
	ActionDOMMouseMoveTo  Action = "dom.mouseMoveTo"
	ActionDOMFocus        Action = "dom.focus"
	ActionDOMType         Action = "dom.type"
	ActionDOMKeyPress     Action = "dom.keyPress"
	ActionDOMKeyDown      Action = "dom.keyDown"
	ActionDOMKeyUp        Action = "dom.keyUp"
	ActionDOMScroll       Action = "dom.scroll"
	ActionDOMSetValue     Action = "dom.setValue"
)

// DOM code actions — routed through the CSP injection ladder.
const (
	ActionDOMEvaluate        Action = "dom.evaluate"
	ActionDOMElementEvaluate Action = "dom.elementEvaluate"
	ActionDOMEvaluateHandle  Action = "dom.evaluateHandle"
)

// DOM debug action.
const (
	ActionDOMSetDebug Action = "dom.setDebug"
)

// Human actions — the behaviour-shaped pipelines.
const (
	ActionHumanClick      Action = "human.click"
	ActionHumanType       Action = "human.type"
	ActionHumanScroll     Action = "human.scroll"
	ActionHumanClearInput Action = "human.clearInput"
)

// Framework actions — runtime tuning control.
const (
	ActionFrameworkSetConfig Action = "framework.setConfig"
	ActionFrameworkGetConfig Action = "framework.getConfig"
	ActionFrameworkReload    Action = "framework.reload"
)

// Cursor actions — internal to the bridge/engine pair, never broker
// business, but carried over the same envelope for uniformity.
const (
	ActionCursorGetPosition    Action = "cursor.getPosition"
	ActionCursorReportPosition Action = "cursor.reportPosition"
)

// namespace returns the leading dot-segment of an action, e.g.
// "human" for "human.click".
func (a Action) namespace() string {
	for i, r := range a {
		if r == '.' {
			return string(a[:i])
		}
	}
	return string(a)
}

// NeedsTuning reports whether the broker must attach __frameworkConfig
// before forwarding this action, per spec §4.1.
func (a Action) NeedsTuning() bool {
	ns := a.namespace()
	return ns == "dom" || ns == "human"
}

// NeedsAvoidMerge reports whether the broker must union the request's
// avoid ruleset with the global one before forwarding.
func (a Action) NeedsAvoidMerge() bool {
	return a.namespace() == "human"
}

// ReservedTuningField is the key under which the broker attaches the
// runtime tuning copy to a command's params.
const ReservedTuningField = "__frameworkConfig"
