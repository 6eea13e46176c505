package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// dispatch routes one input line, matching original_source/cli/
// main.go's dispatch: dot-commands, raw JSON, shorthand verbs, then
// the literal "action.name {json}" form.
func (s *session) dispatch(line string) {
	switch {
	case strings.HasPrefix(line, "."):
		s.dotCommand(line)
	case strings.HasPrefix(line, "{"):
		s.sendRaw(line)
	default:
		if s.tryShorthand(line) {
			return
		}
		parts := strings.SplitN(line, " ", 2)
		params := "{}"
		if len(parts) > 1 {
			params = parts[1]
		}
		s.sendCommand(parts[0], params)
	}
}

func (s *session) sendCommand(action, paramsJSON string) {
	var params json.RawMessage
	if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
		s.out("%sinvalid params:%s %v", cRed, cReset, err)
		return
	}
	s.out("%s-> %s%s", cDim, action, cReset)
	result, err := s.client.Call(action, s.activeTab, params)
	if err != nil {
		s.out("%serror:%s %v", cRed, cReset, err)
		return
	}
	s.printResult(action, result)
}

func (s *session) sendRaw(raw string) {
	var probe struct {
		Action string          `json:"action"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		s.out("%sinvalid JSON:%s %v", cRed, cReset, err)
		return
	}
	s.sendCommand(probe.Action, string(probe.Params))
}

// tryShorthand implements the human-friendly verbs from
// original_source/cli/main.go's tryShorthand, trimmed to the ones
// that don't depend on a local filesystem cookie jar (spec's
// Non-goals exclude file-based cookie persistence).
func (s *session) tryShorthand(line string) bool {
	parts := strings.Fields(line)
	cmd := strings.ToLower(parts[0])
	rest := ""
	if len(parts) > 1 {
		rest = strings.Join(parts[1:], " ")
	}

	switch cmd {
	case "go", "nav", "navigate", "goto":
		if rest == "" {
			s.out("usage: go <url>")
			return true
		}
		url := rest
		if !strings.Contains(url, "://") {
			if strings.HasPrefix(url, "localhost") || strings.HasPrefix(url, "127.0.0.1") {
				url = "http://" + url
			} else {
				url = "https://" + url
			}
		}
		s.sendCommand("tabs.navigate", fmt.Sprintf(`{"url":%q}`, url))
		return true

	case "click":
		if rest == "" {
			s.out("usage: click <selector|handleId>")
			return true
		}
		if strings.HasPrefix(rest, "el_") {
			s.sendCommand("human.click", fmt.Sprintf(`{"handleId":%q}`, rest))
		} else {
			s.sendCommand("human.click", fmt.Sprintf(`{"selector":%q}`, rest))
		}
		return true

	case "type":
		if rest == "" {
			s.out("usage: type [selector] <text>")
			return true
		}
		if len(parts) > 2 && looksLikeSelector(parts[1]) {
			s.sendCommand("human.type", fmt.Sprintf(`{"selector":%q,"text":%q}`, parts[1], strings.Join(parts[2:], " ")))
		} else {
			s.sendCommand("human.type", fmt.Sprintf(`{"text":%q}`, rest))
		}
		return true

	case "sd", "su":
		// sd/su take an absolute target scrollTop, not a relative
		// delta: human.scroll's targetY is the pipeline's destination
		// (internal/interaction/scroll.go), approached in flicks, so
		// there's no "current position" the CLI needs to track.
		if rest == "" {
			s.out("usage: %s <targetY> [selector]", cmd)
			return true
		}
		targetY, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			s.out("usage: %s <targetY> [selector]", cmd)
			return true
		}
		params := fmt.Sprintf(`{"targetY":%g`, targetY)
		if len(parts) > 2 {
			params += fmt.Sprintf(`,"within":{"selector":%q}`, parts[2])
		}
		s.sendCommand("human.scroll", params+"}")
		return true

	case "q", "query":
		if rest == "" {
			s.out("usage: q <selector>")
			return true
		}
		s.sendCommand("dom.querySelectorAll", fmt.Sprintf(`{"selector":%q}`, rest))
		return true

	case "wait":
		if rest == "" {
			s.out("usage: wait <selector>")
			return true
		}
		s.sendCommand("dom.waitForSelector", fmt.Sprintf(`{"selector":%q}`, rest))
		return true

	case "eval":
		if rest == "" {
			s.out("usage: eval <js expression>")
			return true
		}
		fn := rest
		if !strings.HasPrefix(fn, "()") && !strings.HasPrefix(fn, "function") {
			fn = "() => " + fn
		}
		s.sendCommand("dom.evaluate", fmt.Sprintf(`{"fn":%q}`, fn))
		return true

	case "title":
		s.sendCommand("dom.evaluate", `{"fn":"() => document.title"}`)
		return true

	case "url":
		s.sendCommand("dom.evaluate", `{"fn":"() => location.href"}`)
		return true

	case "html":
		s.sendCommand("dom.evaluate", `{"fn":"() => document.documentElement.outerHTML"}`)
		return true

	case "ss", "screenshot":
		s.sendCommand("tabs.screenshot", "{}")
		return true

	case "reload":
		s.sendCommand("tabs.reload", "{}")
		return true

	case "clear":
		if rest == "" {
			s.out("usage: clear <selector>")
			return true
		}
		s.sendCommand("human.clearInput", fmt.Sprintf(`{"selector":%q}`, rest))
		return true

	case "focus":
		if rest == "" {
			s.out("usage: focus <selector>")
			return true
		}
		s.sendCommand("dom.focus", fmt.Sprintf(`{"selector":%q}`, rest))
		return true

	case "key", "press":
		if rest == "" {
			s.out("usage: key <keyname>")
			return true
		}
		s.sendCommand("dom.keyPress", fmt.Sprintf(`{"key":%q}`, rest))
		return true

	case "discover":
		s.sendCommand("dom.discoverElements", "{}")
		return true

	case "frames":
		s.sendCommand("frames.list", "{}")
		return true

	case "cookies":
		s.sendCommand("cookies.getAll", "{}")
		return true

	case "box":
		if rest == "" {
			s.out("usage: box <selector|handleId>")
			return true
		}
		if strings.HasPrefix(rest, "el_") {
			s.sendCommand("dom.boundingBox", fmt.Sprintf(`{"handleId":%q}`, rest))
		} else {
			s.sendCommand("dom.boundingBox", fmt.Sprintf(`{"selector":%q}`, rest))
		}
		return true
	}

	return false
}

func looksLikeSelector(word string) bool {
	return strings.HasPrefix(word, "#") || strings.HasPrefix(word, ".") ||
		strings.HasPrefix(word, "[") || strings.Contains(word, "=")
}
