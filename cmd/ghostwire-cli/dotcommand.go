package main

import (
	"os"
	"strconv"
	"strings"
)

func (s *session) dotCommand(line string) {
	parts := strings.Fields(line)
	cmd := parts[0]

	switch cmd {
	case ".help":
		s.printHelp()

	case ".quit", ".exit":
		s.out(cDim + "bye" + cReset)
		s.close()
		os.Exit(0)

	case ".tab":
		s.handleTabCommand(parts)

	case ".tabs":
		s.sendCommand("tabs.list", "{}")

	case ".events":
		if s.showEvents.Load() {
			s.showEvents.Store(false)
			s.out("events %soff%s", cDim, cReset)
		} else {
			s.showEvents.Store(true)
			s.out("events %son%s", cGreen, cReset)
		}

	case ".status":
		ev := cGreen + "on" + cReset
		if !s.showEvents.Load() {
			ev = cDim + "off" + cReset
		}
		s.out("connected: %syes%s", cGreen, cReset)
		if s.activeTab == 0 {
			s.out("tab:       %s(default)%s", cDim, cReset)
		} else {
			s.out("tab:       %d", s.activeTab)
		}
		s.out("events:    %s", ev)

	default:
		s.out("%sunknown: %s%s %s(try .help)%s", cRed, cmd, cReset, cDim, cReset)
	}
}

func (s *session) handleTabCommand(parts []string) {
	if len(parts) <= 1 {
		if s.activeTab == 0 {
			s.out("no active tab %s(using server default)%s", cDim, cReset)
			return
		}
		s.out("active tab: %d", s.activeTab)
		return
	}

	realID, err := s.resolveTab(parts[1])
	if err != nil {
		s.out("%s%v%s", cRed, err, cReset)
		return
	}
	s.activeTab = realID

	n, _ := strconv.Atoi(parts[1])
	s.tabMu.Lock()
	if n >= 0 && n < len(s.tabMap) && s.tabMap[n].ID == realID {
		s.activeAlias = n
	} else {
		s.activeAlias = -1
	}
	var label string
	for _, t := range s.tabMap {
		if t.ID == realID {
			label = t.URL
			break
		}
	}
	s.tabMu.Unlock()

	if label != "" {
		s.out("tab -> %s%d%s  %s", cGreen, realID, cReset, label)
	} else {
		s.out("tab -> %s%d%s", cGreen, realID, cReset)
	}
	s.printPrompt()
}

func (s *session) printHelp() {
	s.out("")
	s.out("%sNavigation%s", cBold, cReset)
	s.out("  go <url>             navigate (auto-adds https://)")
	s.out("  reload               reload page")
	s.out("  sd <y> [sel]         scroll to absolute scrollTop y (optional container selector)")
	s.out("  su <y> [sel]         same as sd")
	s.out("")
	s.out("%sQuery%s", cBold, cReset)
	s.out("  q <sel>              find all matches")
	s.out("  wait <sel>           wait for selector")
	s.out("  discover             list interactive elements")
	s.out("")
	s.out("%sInteract%s", cBold, cReset)
	s.out("  click <sel|handle>   human click")
	s.out("  type [sel] <text>    human type (sel: # . [ auto-detected)")
	s.out("  clear <sel>          clear input")
	s.out("  focus <sel>          focus element")
	s.out("  key <name>           keyPress (Enter, Tab, Escape...)")
	s.out("")
	s.out("%sInspect%s", cBold, cReset)
	s.out("  eval <js>            evaluate JS expression")
	s.out("  title / url / html   quick page info")
	s.out("  ss                   screenshot (saves to file)")
	s.out("  box <sel>            bounding box")
	s.out("  cookies              dump all cookies")
	s.out("")
	s.out("%sMeta%s", cBold, cReset)
	s.out("  .tabs                list tabs (0-9 aliases)")
	s.out("  .tab <n>             set active tab by alias or id")
	s.out("  .events              toggle event display")
	s.out("  .status              connection info")
	s.out("  .quit                exit")
	s.out("")
	s.out("%sRaw mode%s", cBold, cReset)
	s.out("  action.name {json}   full protocol command")
	s.out("  {\"action\":..., \"params\":...}   raw request")
	s.out("")
}
