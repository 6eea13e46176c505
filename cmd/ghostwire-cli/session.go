package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chzyer/readline"

	"github.com/ghostwire/ghostwire/internal/protocol"
	"github.com/ghostwire/ghostwire/pkg/ghostwireclient"
)

const (
	cReset  = "\033[0m"
	cRed    = "\033[31m"
	cGreen  = "\033[32m"
	cYellow = "\033[33m"
	cDim    = "\033[2m"
	cBold   = "\033[1m"
)

// tabEntry mirrors one row of tabs.list, kept so .tab/.tabs can offer
// the same 0-9 short-alias scheme as original_source/cli/main.go's
// tabMap, instead of making every command spell out a raw tab id.
type tabEntry struct {
	ID     int64  `json:"id"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// session holds the REPL's mutable state, replacing the original's
// package-level globals (conn, activeTab, tabMap, showEvents, ...)
// with fields on a single struct per spec texture: Go code favors an
// explicit receiver over ambient package state.
type session struct {
	client  *ghostwireclient.Client
	rl      *readline.Instance
	oneshot bool

	activeTab   int64
	activeAlias int

	tabMu  sync.Mutex
	tabMap []tabEntry

	showEvents atomic.Bool
}

func newSession(ctx context.Context, addr, token string, oneshot bool) (*session, error) {
	s := &session{oneshot: oneshot, activeAlias: -1}
	s.showEvents.Store(true)

	client, err := ghostwireclient.Dial(ctx, addr, token, s.printEvent)
	if err != nil {
		return nil, fmt.Errorf("%sfailed to connect:%s %w", cRed, cReset, err)
	}
	s.client = client
	return s, nil
}

func (s *session) close() error {
	return s.client.Close()
}

func (s *session) out(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if s.rl != nil {
		fmt.Fprintln(s.rl.Stdout(), msg)
	} else {
		fmt.Println(msg)
	}
}

func (s *session) printEvent(evt protocol.Event) {
	if !s.showEvents.Load() {
		return
	}
	pretty, _ := json.MarshalIndent(evt.Data, "  ", "  ")
	s.out("%s[%s]%s %s", cYellow, evt.Event, cReset, string(pretty))
}

func (s *session) runREPL() error {
	home, _ := os.UserHomeDir()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "gw> ",
		AutoComplete: buildCompleter(),
		EOFPrompt:    "quit",
		HistoryFile:  filepath.Join(home, ".ghostwire_history"),
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	s.rl = rl
	defer rl.Close()

	s.out("%sconnected%s", cGreen, cReset)
	s.dispatch("tabs.list")

	for {
		line, err := rl.Readline()
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.dispatch(line)
	}
}

func (s *session) printPrompt() {
	if s.rl == nil {
		return
	}
	if s.activeAlias >= 0 {
		s.rl.SetPrompt(fmt.Sprintf("gw[%d]> ", s.activeAlias))
	} else {
		s.rl.SetPrompt("gw> ")
	}
}

// resolveTab accepts a short alias (0-9, from the last tabs.list) or a
// raw tab id and returns the real tab id, same two-tier lookup as
// original_source/cli/main.go's resolveTab.
func (s *session) resolveTab(input string) (int64, error) {
	n, err := strconv.ParseInt(input, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid tab: %s", input)
	}
	s.tabMu.Lock()
	defer s.tabMu.Unlock()
	if n >= 0 && n < int64(len(s.tabMap)) {
		return s.tabMap[n].ID, nil
	}
	return n, nil
}

func (s *session) updateTabMap(tabs []tabEntry) {
	s.tabMu.Lock()
	s.tabMap = tabs
	s.tabMu.Unlock()
}

func buildCompleter() readline.AutoCompleter {
	var items []readline.PrefixCompleterInterface
	for _, c := range []string{".help", ".quit", ".exit", ".tab", ".tabs", ".events", ".status"} {
		items = append(items, readline.PcItem(c))
	}
	for _, a := range protocolActions {
		items = append(items, readline.PcItem(a))
	}
	for _, sh := range []string{"go", "click", "type", "sd", "su", "q",
		"wait", "eval", "title", "url", "html", "ss", "reload",
		"clear", "focus", "key", "discover", "cookies", "box"} {
		items = append(items, readline.PcItem(sh))
	}
	return readline.NewPrefixCompleter(items...)
}

var protocolActions = []string{
	"tabs.list", "tabs.navigate", "tabs.create", "tabs.close",
	"tabs.activate", "tabs.reload", "tabs.waitForNavigation",
	"tabs.setViewport", "tabs.screenshot",
	"cookies.getAll", "cookies.set", "frames.list",
	"dom.querySelector", "dom.querySelectorAll",
	"dom.querySelectorWithin", "dom.querySelectorAllWithin",
	"dom.waitForSelector", "dom.boundingBox",
	"dom.click", "dom.mouseMoveTo", "dom.focus",
	"dom.type", "dom.keyPress", "dom.keyDown", "dom.keyUp",
	"dom.scroll", "dom.setValue", "dom.getAttribute",
	"dom.getProperty", "dom.evaluate", "dom.elementEvaluate",
	"dom.evaluateHandle", "dom.discoverElements", "dom.setDebug",
	"dom.findScrollable",
	"human.click", "human.type", "human.scroll", "human.clearInput",
	"framework.setConfig", "framework.getConfig", "framework.reload",
	"cursor.getPosition", "cursor.reportPosition",
}
