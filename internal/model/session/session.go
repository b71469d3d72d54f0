package session

import "time"

// Session captures one user's transient ask/answer state. Empty strings and
// zero values are the "nothing yet" sentinels throughout.
type Session struct {
	ID        string         `json:"id"`
	PersonaID string         `json:"personaId"`
	Question  string         `json:"question"`
	Answer    string         `json:"answer"`
	Reroll    int            `json:"reroll"`
	History   []HistoryEntry `json:"history"`
	HasAsked  bool           `json:"hasAsked"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// HistoryEntry records one asked question together with its latest answer.
// A reroll rewrites Answer and Rerolls in place instead of appending.
type HistoryEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Rerolls  int    `json:"rerolls"`
}

// Generation parameter bounds, matching the ranges the ask pages expose.
const (
	MinTemperature = 0.0
	MaxTemperature = 1.0
	MinMaxTokens   = 50
	MaxMaxTokens   = 2000

	DefaultTemperature = 0.4
	DefaultMaxTokens   = 300
)

// Params carries the per-request generation parameters passed through to the
// resolver unmodified (after clamping).
type Params struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

// Clamp returns a copy of p with Temperature forced into [0,1] and MaxTokens
// into [50,2000]. A zero MaxTokens means "unset" and takes the default.
func (p Params) Clamp() Params {
	if p.Temperature < MinTemperature {
		p.Temperature = MinTemperature
	}
	if p.Temperature > MaxTemperature {
		p.Temperature = MaxTemperature
	}
	if p.MaxTokens == 0 {
		p.MaxTokens = DefaultMaxTokens
	}
	if p.MaxTokens < MinMaxTokens {
		p.MaxTokens = MinMaxTokens
	}
	if p.MaxTokens > MaxMaxTokens {
		p.MaxTokens = MaxMaxTokens
	}
	return p
}
