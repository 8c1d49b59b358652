package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/webpeel/models"
)

// actionTimeoutDefault is used when an action carries no explicit Timeout.
const actionTimeoutDefault = models.ActionTimeoutDefaultMs * time.Millisecond

// executeActions runs the ordered list of browser actions on the page,
// stopping at the first failure and reporting how many completed.
func executeActions(ctx context.Context, page *rod.Page, actions []models.Action) error {
	budget := time.Duration(models.ActionBudgetTotalMs) * time.Millisecond
	deadline := time.Now().Add(budget)

	for i, action := range actions {
		if time.Now().After(deadline) {
			return models.NewPeelError(models.ErrKindTimeout,
				fmt.Sprintf("action budget exhausted after %d of %d actions", i, len(actions)), nil)
		}
		if err := executeSingleAction(ctx, page, action); err != nil {
			return models.NewPeelError(models.ErrKindFatal,
				fmt.Sprintf("action %d (%s) failed after %d completed", i, action.Type, i), err)
		}
	}
	return nil
}

// executeSingleAction dispatches a single action with its own timeout.
func executeSingleAction(ctx context.Context, page *rod.Page, action models.Action) error {
	timeout := actionTimeoutDefault
	if action.Timeout > 0 {
		timeout = time.Duration(action.Timeout) * time.Millisecond
	}
	actionCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := page.Context(actionCtx)

	switch action.Type {
	case "wait":
		return execWait(p, action)
	case "waitForSelector":
		return p.WaitElementsMoreThan(action.Selector, 0)
	case "click":
		return execClick(p, action)
	case "hover":
		return execHover(p, action)
	case "type", "fill":
		return execType(p, action)
	case "press":
		return execPress(p, action)
	case "select":
		return execSelect(p, action)
	case "scroll":
		return execScroll(p, action)
	case "screenshot":
		return nil // handled by the caller after all actions run
	default:
		return fmt.Errorf("unknown action type: %s", action.Type)
	}
}

// execWait either sleeps for a duration or waits for a CSS selector to appear.
func execWait(p *rod.Page, action models.Action) error {
	if action.Selector != "" {
		return p.WaitElementsMoreThan(action.Selector, 0)
	}
	ms := action.Ms
	if ms <= 0 {
		ms = 1000
	}
	d := time.Duration(ms) * time.Millisecond
	select {
	case <-time.After(d):
		return nil
	case <-p.GetContext().Done():
		return p.GetContext().Err()
	}
}

// execClick finds the element matching the selector and clicks it.
func execClick(p *rod.Page, action models.Action) error {
	if action.Selector == "" {
		return fmt.Errorf("click action requires a selector")
	}
	el, err := p.Element(action.Selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", action.Selector, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// execHover finds the element matching the selector and hovers over it.
func execHover(p *rod.Page, action models.Action) error {
	if action.Selector == "" {
		return fmt.Errorf("hover action requires a selector")
	}
	el, err := p.Element(action.Selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", action.Selector, err)
	}
	return el.Hover()
}

// execType clears the target element (if it has a selector) and types Value
// into it, or into the currently focused element when no selector is given.
func execType(p *rod.Page, action models.Action) error {
	if action.Selector == "" {
		return p.InsertText(action.Value)
	}
	el, err := p.Element(action.Selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", action.Selector, err)
	}
	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	return el.Input(action.Value)
}

// execPress sends a single named key press, either to a target element or
// to the page.
func execPress(p *rod.Page, action models.Action) error {
	key, ok := keyByName[action.Key]
	if !ok {
		return fmt.Errorf("unsupported key: %q", action.Key)
	}
	if action.Selector != "" {
		el, err := p.Element(action.Selector)
		if err != nil {
			return fmt.Errorf("element %q not found: %w", action.Selector, err)
		}
		return el.Type(key)
	}
	return p.Keyboard.Type(key)
}

// execSelect chooses an <option> by its value within a <select> element.
func execSelect(p *rod.Page, action models.Action) error {
	if action.Selector == "" {
		return fmt.Errorf("select action requires a selector")
	}
	el, err := p.Element(action.Selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", action.Selector, err)
	}
	return el.Select([]string{fmt.Sprintf("option[value=%q]", action.Value)}, true, rod.SelectorTypeCSSSector)
}

// execScroll scrolls the page up, down, or to the bottom.
func execScroll(p *rod.Page, action models.Action) error {
	if action.To == "bottom" {
		_, err := p.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
		return err
	}

	amount := action.Amount
	if amount <= 0 {
		amount = 1
	}

	res, err := p.Eval(`() => window.innerHeight`)
	if err != nil {
		return fmt.Errorf("failed to get viewport height: %w", err)
	}
	viewportHeight := res.Value.Int()

	for i := 0; i < amount; i++ {
		var scrollDelta int
		if action.Direction == "up" {
			scrollDelta = -viewportHeight
		} else {
			scrollDelta = viewportHeight
		}

		if err := p.Mouse.Scroll(0, float64(scrollDelta), 0); err != nil {
			return fmt.Errorf("scroll step %d failed: %w", i, err)
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}

var keyByName = map[string]input.Key{
	"Enter":      input.Enter,
	"Tab":        input.Tab,
	"Escape":     input.Escape,
	"Backspace":  input.Backspace,
	"ArrowUp":    input.ArrowUp,
	"ArrowDown":  input.ArrowDown,
	"ArrowLeft":  input.ArrowLeft,
	"ArrowRight": input.ArrowRight,
	"Space":      input.Space,
}
