package driver

const (
	chatListSelector    = `[data-testid="chat-list"]`
	qrCodeSelector      = `[data-testid="qr-code"]`
	contactCellSelector = `[data-testid="cell-frame-container"]`
)

var (
	searchButton = Locator{What: "search button", Queries: []Query{
		{CSS: `[data-testid="chat-list-search"]`},
		{CSS: `[title="Search or start new chat"]`},
		{CSS: `[aria-label*="Search"]`},
	}}

	searchInput = Locator{What: "search input", Queries: []Query{
		{CSS: `div[contenteditable="true"][data-tab="3"]`},
		{CSS: `[data-testid="chat-list-search"] input`},
	}}

	messageInput = Locator{What: "message input", Queries: []Query{
		{CSS: `div[contenteditable="true"][data-tab="10"]`},
		{CSS: `[data-testid="conversation-compose-box-input"]`},
	}}

	sendButton = Locator{What: "send button", Queries: []Query{
		{CSS: `[data-testid="send"]`},
		{CSS: `[aria-label*="Send"]`},
		{CSS: `button[data-testid="send"]`},
	}}

	newChatAffordance = Query{
		CSS:     "span",
		Text:    []string{"Message", "Chat", "Send message"},
		Closest: `[role="button"]`,
	}
)

// chatResult matches an existing chat for the contact, most specific first.
func chatResult(phone, name string) Locator {
	qs := []Query{{CSS: `[title*=` + cssString(phone) + `]`}}
	if name != "" {
		qs = append(qs, Query{CSS: `[title*=` + cssString(name) + `]`})
	}
	qs = append(qs, Query{CSS: contactCellSelector})
	return Locator{What: "chat for " + phone, Queries: qs}
}
