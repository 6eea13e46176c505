package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// printResult formats a successful response the way
// original_source/cli/main.go's printResponse does: special-cased
// output for the actions that return something worth rendering, a
// pretty-printed JSON dump otherwise.
func (s *session) printResult(action string, result json.RawMessage) {
	switch action {
	case "tabs.screenshot":
		s.printScreenshot(result)
		return
	case "tabs.list":
		if s.printTabs(result) {
			return
		}
	case "dom.discoverElements":
		if s.printDiscovered(result) {
			return
		}
	}

	var v any
	if err := json.Unmarshal(result, &v); err != nil {
		s.out("%s", string(result))
		return
	}
	pretty, _ := json.MarshalIndent(v, "", "  ")
	s.out("%s", string(pretty))
}

func (s *session) printScreenshot(result json.RawMessage) {
	var shot struct {
		PNG []byte `json:"png"`
	}
	if err := json.Unmarshal(result, &shot); err != nil || len(shot.PNG) == 0 {
		s.out("%serror:%s invalid screenshot response", cRed, cReset)
		return
	}
	name := fmt.Sprintf("screenshot_%s.png", time.Now().Format("20060102_150405"))
	if err := os.WriteFile(name, shot.PNG, 0644); err != nil {
		s.out("%serror:%s write: %v", cRed, cReset, err)
		return
	}
	s.out("%sscreenshot:%s %s (%d bytes)", cGreen, cReset, name, len(shot.PNG))
}

func (s *session) printTabs(result json.RawMessage) bool {
	var tabs []tabEntry
	if err := json.Unmarshal(result, &tabs); err != nil || len(tabs) == 0 {
		return false
	}
	s.updateTabMap(tabs)
	for i, t := range tabs {
		selected := " "
		if t.ID == s.activeTab {
			selected = cGreen + ">" + cReset
		}
		marker := "  "
		if t.Active {
			marker = cGreen + "* " + cReset
		}
		title := t.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		s.out("%s %s%s%d%s  %s%d%s  %s  %s%s%s",
			selected, marker, cBold, i, cReset,
			cDim, t.ID, cReset,
			t.URL,
			cDim, title, cReset)
	}
	s.out("%s  .tab <0-%d> to target a tab%s", cDim, len(tabs)-1, cReset)
	return true
}

func (s *session) printDiscovered(result json.RawMessage) bool {
	var disc struct {
		Elements []struct {
			Type        string `json:"type"`
			Tag         string `json:"tag"`
			Text        string `json:"text"`
			Href        string `json:"href"`
			HandleID    string `json:"handleId"`
			Selector    string `json:"selector"`
			InputType   string `json:"inputType"`
			Name        string `json:"name"`
			Placeholder string `json:"placeholder"`
		} `json:"elements"`
	}
	if err := json.Unmarshal(result, &disc); err != nil || len(disc.Elements) == 0 {
		return false
	}

	links, buttons, inputs := 0, 0, 0
	for _, el := range disc.Elements {
		switch el.Type {
		case "link":
			links++
		case "button":
			buttons++
		case "input":
			inputs++
		}
	}
	s.out("%s%d elements%s  %s(%d links, %d buttons, %d inputs)%s",
		cBold, len(disc.Elements), cReset, cDim, links, buttons, inputs, cReset)
	s.out("")
	for _, el := range disc.Elements {
		label := el.Text
		if len(label) > 50 {
			label = label[:47] + "..."
		}
		switch el.Type {
		case "link":
			href := el.Href
			if len(href) > 60 {
				href = href[:57] + "..."
			}
			s.out("  %s%s%s  %s[link]%s  %s%q%s  %s-> %s%s",
				cGreen, el.HandleID, cReset, cYellow, cReset,
				cDim, label, cReset, cDim, href, cReset)
		case "button":
			s.out("  %s%s%s  %s[btn]%s   %s%q%s  %s%s%s",
				cGreen, el.HandleID, cReset, cYellow, cReset,
				cDim, label, cReset, cDim, el.Selector, cReset)
		case "input":
			desc := el.InputType
			if el.Name != "" {
				desc += " name=" + el.Name
			}
			if el.Placeholder != "" {
				desc += fmt.Sprintf(" %q", el.Placeholder)
			}
			s.out("  %s%s%s  %s[input]%s %s%s%s  %s%s%s",
				cGreen, el.HandleID, cReset, cYellow, cReset,
				cDim, desc, cReset, cDim, el.Selector, cReset)
		}
	}
	return true
}
