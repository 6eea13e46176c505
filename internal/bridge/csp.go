package bridge

import (
	"context"
	"time"

	"github.com/ghostwire/ghostwire/internal/protocol"
)

// inlineEvalCap bounds tier 1 of the CSP ladder (spec §4.5: "an inline
// script has 5s to report back via the mutation observer before the
// bridge gives up on it and falls through").
const inlineEvalCap = 5 * time.Second

// evaluate implements spec §4.2 execution path 3 / §4.5's three-tier
// CSP injection ladder for dom.evaluate, dom.elementEvaluate, and
// dom.evaluateHandle: try an inline <script> tag first (fastest, but
// blocked by a strict CSP), fall back to the host's scripting API
// running in the page's main world, and if that still fails make one
// more ExecuteMainWorld call as tier 3. BrowserHost has no separate
// isolated-world method, so tier 3 is a retry of tier 2, not an
// isolated-world execution. dom.elementEvaluate runs exactly like
// dom.evaluate: its handleId/selector target is not passed to fn.
// dom.evaluateHandle wraps the result as {"value": result}; element
// results are not registered in the handle registry.
func (br *Bridge) evaluate(ctx context.Context, tabID int64, action protocol.Action, p params) (any, error) {
	if p.Fn == "" {
		return nil, protocol.ErrInvalidParams
	}

	// Tier 1: inline script + mutation observer, capped at 5s.
	result, err := br.host.InlineScriptEval(ctx, tabID, 0, p.Fn, p.Args, inlineEvalCap)
	if err == nil {
		return finishEvaluate(action, result)
	}

	// Tier 2: the host's scripting API, main world.
	result, err = br.host.ExecuteMainWorld(ctx, tabID, 0, p.Fn, p.Args)
	if err == nil {
		return finishEvaluate(action, result)
	}

	// Tier 3: the same main-world call once more; BrowserHost exposes no
	// isolated-world execution, so the bridge cannot select one here.
	result, err = br.host.ExecuteMainWorld(ctx, tabID, 0, p.Fn, p.Args)
	if err != nil {
		return nil, protocol.ErrEvaluateFailedAllWorlds
	}
	return finishEvaluate(action, result)
}

func finishEvaluate(action protocol.Action, result any) (any, error) {
	if action == protocol.ActionDOMEvaluateHandle {
		return map[string]any{"value": result}, nil
	}
	return result, nil
}
