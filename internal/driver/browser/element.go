package browser

import (
	"context"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

type element struct {
	el *rod.Element
}

// Click tries a DOM click first; some handlers ignore synthetic clicks, so a real mouse click
// follows when that fails.
func (e *element) Click(ctx context.Context) error {
	el := e.el.Context(ctx)
	if _, err := el.Eval(`() => { this.scrollIntoView({block: 'center'}); this.click(); return true }`); err == nil {
		return nil
	}
	return rod.Try(func() {
		_ = el.ScrollIntoView()
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			panic(err)
		}
	})
}

func (e *element) Focus(ctx context.Context) error {
	return e.el.Context(ctx).Focus()
}

func (e *element) Clear(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(`() => {
		if (this.isContentEditable) { this.innerHTML = ''; this.textContent = ''; }
		else if ('value' in this) { this.value = ''; }
		return true;
	}`)
	return err
}

func (e *element) SetText(ctx context.Context, text string) error {
	_, err := e.el.Context(ctx).Eval(`(text) => {
		this.focus();
		if (this.isContentEditable) { this.innerHTML = ''; this.textContent = text; }
		else if ('value' in this) { this.value = text; }
		else { this.textContent = text; }
		this.dispatchEvent(new Event('input', {bubbles: true}));
		this.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	}`, text)
	return err
}

func (e *element) PressEnter(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(`() => {
		this.dispatchEvent(new KeyboardEvent('keydown', {key: 'Enter', code: 'Enter', keyCode: 13, which: 13, bubbles: true}));
		return true;
	}`)
	return err
}
