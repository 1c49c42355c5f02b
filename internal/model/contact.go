package model

type Contact struct {
	Phone   string `json:"phone"`
	Name    string `json:"name"`
	Message string `json:"message"`
	// Fields holds every column of the source row keyed by its lower-cased header.
	Fields map[string]string `json:"fields,omitempty"`
}

// Field looks up a placeholder value. The normalized phone, name and message win over the
// raw column values.
func (c Contact) Field(key string) (string, bool) {
	switch key {
	case "phone":
		return c.Phone, true
	case "name":
		return c.Name, true
	case "message":
		return c.Message, true
	}
	v, ok := c.Fields[key]
	return v, ok
}

type ContactPreview struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Preview string `json:"preview"`
}

type ContactList struct {
	Total        int              `json:"total"`
	UniquePhones int              `json:"uniquePhones"`
	Contacts     []ContactPreview `json:"contacts"`
}
