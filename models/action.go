package models

// Action is a single browser interaction step, normalized to a common
// shape regardless of which of the supported types it carries.
//
// Supported Type values: click, wait, type, fill, press, scroll, select,
// hover, waitForSelector, screenshot.
type Action struct {
	Type      string `json:"type"`
	Selector  string `json:"selector,omitempty"`
	Value     string `json:"value,omitempty"`
	Ms        int    `json:"ms,omitempty"`      // wait duration, default 1000
	Key       string `json:"key,omitempty"`     // for press
	Direction string `json:"direction,omitempty"` // for scroll: "up"; any other value scrolls down
	Amount    int    `json:"amount,omitempty"`    // for scroll, in viewport-heights
	To        string `json:"to,omitempty"`        // scroll "bottom"
	Timeout   int    `json:"timeout,omitempty"`   // per-action override, ms
}

// ActionTimeoutDefaultMs is applied to an action with no explicit Timeout.
const ActionTimeoutDefaultMs = 5000

// ActionBudgetTotalMs bounds the cumulative time actions may consume.
const ActionBudgetTotalMs = 30000
