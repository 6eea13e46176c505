// Package tuning holds the broker's runtime tuning record: the one
// piece of global mutable state in the system (spec §9). Callers must
// only ever read a Copy() of it — the broker injects a snapshot into
// each command's params rather than letting the engine read live
// broker state at dispatch time.
package tuning

import "time"

// Handles controls the handle registry's TTL sweeper.
type Handles struct {
	TTLMs             int64 `json:"ttlMs" yaml:"ttlMs"`
	CleanupIntervalMs int64 `json:"cleanupIntervalMs" yaml:"cleanupIntervalMs"`
}

// Debug controls the optional overlay and session logging.
type Debug struct {
	Cursor     bool `json:"cursor" yaml:"cursor"`
	DevTools   bool `json:"devtools,omitempty" yaml:"devtools,omitempty"`
	SessionLog bool `json:"sessionLog,omitempty" yaml:"sessionLog,omitempty"`
}

// Click controls the human-click pipeline's timing.
type Click struct {
	ThinkDelayMinMs int64 `json:"thinkDelayMin" yaml:"thinkDelayMin"`
	ThinkDelayMaxMs int64 `json:"thinkDelayMax" yaml:"thinkDelayMax"`
	MaxShiftPx      float64 `json:"maxShiftPx" yaml:"maxShiftPx"`
}

// Type controls the human-type pipeline's timing.
type Type struct {
	BaseDelayMinMs int64   `json:"baseDelayMin" yaml:"baseDelayMin"`
	BaseDelayMaxMs int64   `json:"baseDelayMax" yaml:"baseDelayMax"`
	Variance       float64 `json:"variance" yaml:"variance"`
	PauseChance    float64 `json:"pauseChance" yaml:"pauseChance"`
	PauseMinMs     int64   `json:"pauseMin" yaml:"pauseMin"`
	PauseMaxMs     int64   `json:"pauseMax" yaml:"pauseMax"`
}

// Scroll controls the human-scroll pipeline's timing. AmountMin/Max
// bound one flick's distance in pixels; FlickDelay bounds the pause
// between flicks and SettleDelay the pause after the last one.
type Scroll struct {
	AmountMin         int     `json:"amountMin" yaml:"amountMin"`
	AmountMax         int     `json:"amountMax" yaml:"amountMax"`
	BackScrollChance  float64 `json:"backScrollChance" yaml:"backScrollChance"`
	BackScrollMin     int     `json:"backScrollMin" yaml:"backScrollMin"`
	BackScrollMax     int     `json:"backScrollMax" yaml:"backScrollMax"`
	FlickDelayMinMs   int64   `json:"flickDelayMin" yaml:"flickDelayMin"`
	FlickDelayMaxMs   int64   `json:"flickDelayMax" yaml:"flickDelayMax"`
	SettleDelayMinMs  int64   `json:"settleDelayMin" yaml:"settleDelayMin"`
	SettleDelayMaxMs  int64   `json:"settleDelayMax" yaml:"settleDelayMax"`
}

// Tuning is the full runtime tuning record (spec §3).
type Tuning struct {
	Handles Handles `json:"handles" yaml:"handles"`
	Debug   Debug   `json:"debug" yaml:"debug"`
	Click   Click   `json:"click" yaml:"click"`
	Type    Type    `json:"type" yaml:"type"`
	Scroll  Scroll  `json:"scroll" yaml:"scroll"`
	Avoid   Ruleset `json:"avoid" yaml:"avoid"`
}

// Default mirrors the defaults named throughout spec §4.3: a 15 minute
// handle TTL swept every 60s, 150-400ms think time, 50px max shift,
// and the debug cursor on by default.
func Default() Tuning {
	return Tuning{
		Handles: Handles{
			TTLMs:             int64(15 * time.Minute / time.Millisecond),
			CleanupIntervalMs: int64(60 * time.Second / time.Millisecond),
		},
		Debug: Debug{Cursor: true},
		Click: Click{
			ThinkDelayMinMs: 150,
			ThinkDelayMaxMs: 400,
			MaxShiftPx:      50,
		},
		Type: Type{
			BaseDelayMinMs: 50,
			BaseDelayMaxMs: 150,
			Variance:       0.3,
			PauseChance:    0.12,
			PauseMinMs:     300,
			PauseMaxMs:     900,
		},
		Scroll: Scroll{
			AmountMin:        200,
			AmountMax:        600,
			BackScrollChance: 0.15,
			BackScrollMin:    15,
			BackScrollMax:    60,
			FlickDelayMinMs:  80,
			FlickDelayMaxMs:  220,
			SettleDelayMinMs: 150,
			SettleDelayMaxMs: 400,
		},
		Avoid: Ruleset{},
	}
}

// Copy returns a deep, independent copy suitable for injection into a
// single command's params (spec §9: "copy-on-inject, never a shared
// reference read at dispatch time").
func (t Tuning) Copy() Tuning {
	out := t
	out.Avoid = t.Avoid.clone()
	return out
}

// MergeInto overlays non-zero fields of patch onto t and returns the
// result, used by framework.setConfig. Unlike Avoid's union-merge,
// behaviour-group fields are a last-write-wins overlay: a patch field
// left at its zero value does not clear the existing tuning. Debug is
// the exception: it is copied from patch as a whole, so a patch whose
// debug flags are false turns them off.
func (t Tuning) MergeInto(patch Tuning) Tuning {
	out := t
	if patch.Handles.TTLMs != 0 {
		out.Handles.TTLMs = patch.Handles.TTLMs
	}
	if patch.Handles.CleanupIntervalMs != 0 {
		out.Handles.CleanupIntervalMs = patch.Handles.CleanupIntervalMs
	}
	out.Debug = patch.Debug
	if patch.Click.ThinkDelayMinMs != 0 {
		out.Click.ThinkDelayMinMs = patch.Click.ThinkDelayMinMs
	}
	if patch.Click.ThinkDelayMaxMs != 0 {
		out.Click.ThinkDelayMaxMs = patch.Click.ThinkDelayMaxMs
	}
	if patch.Click.MaxShiftPx != 0 {
		out.Click.MaxShiftPx = patch.Click.MaxShiftPx
	}
	if patch.Type.BaseDelayMinMs != 0 {
		out.Type.BaseDelayMinMs = patch.Type.BaseDelayMinMs
	}
	if patch.Type.BaseDelayMaxMs != 0 {
		out.Type.BaseDelayMaxMs = patch.Type.BaseDelayMaxMs
	}
	if patch.Type.Variance != 0 {
		out.Type.Variance = patch.Type.Variance
	}
	if patch.Type.PauseChance != 0 {
		out.Type.PauseChance = patch.Type.PauseChance
	}
	if patch.Type.PauseMinMs != 0 {
		out.Type.PauseMinMs = patch.Type.PauseMinMs
	}
	if patch.Type.PauseMaxMs != 0 {
		out.Type.PauseMaxMs = patch.Type.PauseMaxMs
	}
	if patch.Scroll.AmountMin != 0 {
		out.Scroll.AmountMin = patch.Scroll.AmountMin
	}
	if patch.Scroll.AmountMax != 0 {
		out.Scroll.AmountMax = patch.Scroll.AmountMax
	}
	if patch.Scroll.BackScrollChance != 0 {
		out.Scroll.BackScrollChance = patch.Scroll.BackScrollChance
	}
	if patch.Scroll.BackScrollMin != 0 {
		out.Scroll.BackScrollMin = patch.Scroll.BackScrollMin
	}
	if patch.Scroll.BackScrollMax != 0 {
		out.Scroll.BackScrollMax = patch.Scroll.BackScrollMax
	}
	if patch.Scroll.FlickDelayMinMs != 0 {
		out.Scroll.FlickDelayMinMs = patch.Scroll.FlickDelayMinMs
	}
	if patch.Scroll.FlickDelayMaxMs != 0 {
		out.Scroll.FlickDelayMaxMs = patch.Scroll.FlickDelayMaxMs
	}
	if patch.Scroll.SettleDelayMinMs != 0 {
		out.Scroll.SettleDelayMinMs = patch.Scroll.SettleDelayMinMs
	}
	if patch.Scroll.SettleDelayMaxMs != 0 {
		out.Scroll.SettleDelayMaxMs = patch.Scroll.SettleDelayMaxMs
	}
	out.Avoid = out.Avoid.Union(patch.Avoid)
	return out
}
