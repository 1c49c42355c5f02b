// Command mock serves a fake chat web client exposing the DOM hooks the driver looks for, so a
// run can be exercised end to end without a real account.
package main

import (
	crand "crypto/rand"
	"encoding/json"
	"flag"
	"html/template"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

type sentMessage struct {
	ID      string `json:"id"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
	At      int64  `json:"atMs"`
}

type mockState struct {
	mu   sync.Mutex
	sent []sentMessage
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	loginDelay := flag.Duration("login-delay", 0, "show the QR code for this long before the chat list")
	unknown := flag.String("unknown-suffix", "0000", "phones ending with this have no chat and no start-chat button")
	flag.Parse()

	state := &mockState{}
	page := template.Must(template.New("page").Parse(pageHTML))

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = page.Execute(w, map[string]any{
			"LoginDelayMs":  loginDelay.Milliseconds(),
			"UnknownSuffix": *unknown,
		})
	})

	mux.HandleFunc("/mock/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	mux.HandleFunc("/mock/sent", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var body struct {
				Phone   string `json:"phone"`
				Message string `json:"message"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			msg := sentMessage{
				ID:      randString(12),
				Phone:   strings.TrimSpace(body.Phone),
				Message: body.Message,
				At:      time.Now().UnixMilli(),
			}
			state.mu.Lock()
			state.sent = append(state.sent, msg)
			state.mu.Unlock()
			log.Printf("sent to %s: %q", msg.Phone, msg.Message)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": msg})
		case http.MethodGet:
			state.mu.Lock()
			out := append([]sentMessage(nil), state.sent...)
			state.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": out})
		case http.MethodDelete:
			state.mu.Lock()
			state.sent = nil
			state.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("mock chat client listening on %s", *addr)
	log.Fatal(srv.ListenAndServe())
}

func randString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	if n <= 0 {
		return ""
	}
	raw := make([]byte, n)
	_, _ = crand.Read(raw)
	out := make([]byte, n)
	for i := range out {
		out[i] = letters[int(raw[i])%len(letters)]
	}
	return string(out)
}

const pageHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<title>Mock chat</title>
<style>
  body { font-family: sans-serif; margin: 0; display: flex; height: 100vh; }
  #side { width: 320px; border-right: 1px solid #ddd; padding: 8px; }
  #main { flex: 1; padding: 8px; display: flex; flex-direction: column; }
  [contenteditable] { border: 1px solid #aaa; min-height: 24px; padding: 4px; margin: 4px 0; }
  #log { flex: 1; overflow: auto; }
  .cell { padding: 6px; border-bottom: 1px solid #eee; cursor: pointer; }
</style>
</head>
<body>
<div id="qr" data-testid="qr-code">Scan to log in</div>
<div id="side" hidden>
  <div data-testid="chat-list">
    <button title="Search or start new chat" aria-label="Search">Search</button>
    <div id="search" contenteditable="true" data-tab="3" hidden></div>
    <div id="results"></div>
  </div>
</div>
<div id="main">
  <div id="chat-title"></div>
  <div id="log"></div>
  <div id="compose" hidden>
    <div id="input" contenteditable="true" data-tab="10"></div>
    <button data-testid="send" aria-label="Send">Send</button>
  </div>
</div>
<script>
(() => {
  const loginDelay = {{.LoginDelayMs}};
  const unknownSuffix = {{.UnknownSuffix}};
  const $ = (s) => document.querySelector(s);
  let current = "";

  setTimeout(() => { $("#qr").remove(); $("#side").hidden = false; }, loginDelay);

  $('[title="Search or start new chat"]').addEventListener("click", () => {
    $("#search").hidden = false;
  });

  $("#search").addEventListener("keydown", (e) => {
    if (e.key !== "Enter") return;
    const phone = ($("#search").textContent || "").trim();
    const results = $("#results");
    results.innerHTML = "";
    if (!phone || (unknownSuffix && phone.endsWith(unknownSuffix))) return;
    const cell = document.createElement("div");
    cell.className = "cell";
    cell.title = "+" + phone;
    cell.setAttribute("data-testid", "cell-frame-container");
    cell.textContent = phone;
    cell.addEventListener("click", () => open(phone));
    results.appendChild(cell);
  });

  function open(phone) {
    current = phone;
    $("#chat-title").textContent = phone;
    $("#compose").hidden = false;
    $("#input").textContent = "";
  }

  $('[data-testid="send"]').addEventListener("click", async () => {
    const text = ($("#input").textContent || "").trim();
    if (!current || !text) return;
    const line = document.createElement("div");
    line.textContent = current + ": " + text;
    $("#log").appendChild(line);
    $("#input").textContent = "";
    await fetch("/mock/sent", {
      method: "POST",
      headers: {"Content-Type": "application/json"},
      body: JSON.stringify({phone: current, message: text}),
    });
  });
})();
</script>
</body>
</html>
`
