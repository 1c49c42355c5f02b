// Package driver performs one message delivery by scripting the chat page's UI.
//
// The page markup is not a stable contract, so every element is described by a Locator: an
// ordered list of queries tried one after the other. Elements are looked up again for every
// step and never kept across a settle delay.
package driver

import (
	"context"
	"errors"
	"strings"
)

// Sender is what the bulk-send engine needs from the page.
type Sender interface {
	Ready(ctx context.Context) (bool, error)
	Send(ctx context.Context, phone, message, name string) error
}

// Page runs fresh queries against the live document.
type Page interface {
	// Query returns the first element matching q, or nil when nothing matches right now.
	Query(ctx context.Context, q Query) (Element, error)
}

// Element is a handle valid for a single step.
type Element interface {
	Click(ctx context.Context) error
	Focus(ctx context.Context) error
	Clear(ctx context.Context) error
	// SetText replaces the element's content and notifies the page's input watchers.
	SetText(ctx context.Context, text string) error
	PressEnter(ctx context.Context) error
}

type Query struct {
	CSS string
	// Text keeps only matches whose text contains one of the values.
	Text []string
	// Closest maps a match to its nearest ancestor-or-self matching this selector.
	Closest string
}

func (q Query) String() string {
	var b strings.Builder
	b.WriteString(q.CSS)
	if len(q.Text) > 0 {
		b.WriteString(" text~")
		b.WriteString(strings.Join(q.Text, "|"))
	}
	if q.Closest != "" {
		b.WriteString(" closest ")
		b.WriteString(q.Closest)
	}
	return b.String()
}

type Locator struct {
	What    string
	Queries []Query
}

// Find tries each query in order and returns the first hit.
func (l Locator) Find(ctx context.Context, p Page) (Element, error) {
	for _, q := range l.Queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		el, err := p.Query(ctx, q)
		if err != nil {
			if errors.Is(err, ErrSessionClosed) {
				return nil, err
			}
			// A broken query is treated like a miss; the next fallback may still match.
			continue
		}
		if el != nil {
			return el, nil
		}
	}
	return nil, &ElementNotFoundError{What: l.What}
}

// cssString quotes s for use inside an attribute selector.
func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", " ")
	return `"` + r.Replace(s) + `"`
}
