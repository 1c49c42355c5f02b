package engine

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"bulk_sender/internal/contacts"
	"bulk_sender/internal/model"
	"bulk_sender/internal/tmpl"
)

// previewRunes is how much of the rendered message the contact preview shows.
const previewRunes = 80

// UploadFile replaces the contact list with the contents of a CSV or spreadsheet file and
// resets the run index. Uploading during a run is refused.
func (e *Engine) UploadFile(ctx context.Context, filename string, r io.Reader) (model.ContactList, error) {
	if e.IsRunning() {
		return model.ContactList{}, ErrRunning
	}
	list, err := contacts.Parse(filename, r)
	if err != nil {
		e.status("error", err.Error())
		return model.ContactList{}, err
	}
	return e.LoadContacts(ctx, list)
}

// LoadContacts installs an already normalized list.
func (e *Engine) LoadContacts(ctx context.Context, list []model.Contact) (model.ContactList, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return model.ContactList{}, ErrRunning
	}
	e.contacts = append([]model.Contact(nil), list...)
	e.state = model.RunStateIdle
	e.progress = model.Progress{State: model.RunStateIdle, Total: len(list)}
	autoStart := e.settings.AutoStart
	out := previewOf(e.contacts)
	e.publishProgressLocked()
	e.mu.Unlock()

	if missing := missingPlaceholders(list); len(missing) > 0 {
		e.bus.Log("warn", "template placeholders without a matching column", map[string]any{"fields": missing})
	}
	e.logger.Info("contacts loaded", zap.Int("total", out.Total), zap.Int("uniquePhones", out.UniquePhones))
	e.status("success", fmt.Sprintf("Loaded %d contacts", out.Total))

	if autoStart {
		if err := e.Start(ctx); err != nil {
			e.logger.Warn("auto start failed", zap.Error(err))
		}
	}
	return out, nil
}

// Contacts returns the loaded list with each message rendered for preview.
func (e *Engine) Contacts() model.ContactList {
	e.mu.Lock()
	defer e.mu.Unlock()
	return previewOf(e.contacts)
}

func previewOf(list []model.Contact) model.ContactList {
	out := model.ContactList{Total: len(list), Contacts: make([]model.ContactPreview, 0, len(list))}
	phones := make(map[string]struct{}, len(list))
	for _, c := range list {
		phones[c.Phone] = struct{}{}
		text := []rune(tmpl.Render(c.Message, c))
		if len(text) > previewRunes {
			text = append(text[:previewRunes], []rune("...")...)
		}
		out.Contacts = append(out.Contacts, model.ContactPreview{Name: c.Name, Phone: c.Phone, Preview: string(text)})
	}
	out.UniquePhones = len(phones)
	return out
}

// missingPlaceholders lists fields some template refers to that its own row does not carry.
func missingPlaceholders(list []model.Contact) []string {
	var out []string
	seen := map[string]bool{}
	for _, c := range list {
		for _, key := range tmpl.Placeholders(c.Message) {
			if _, ok := c.Field(key); ok || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, key)
		}
	}
	return out
}
