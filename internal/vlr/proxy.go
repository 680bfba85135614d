package vlr

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/Con7105/fantasy-valo/internal/logger"
)

// Proxy forwards GET /api/proxy?path=<sub>&... to <base>/<sub>?... so browsers
// can reach the provider without CORS trouble.
type Proxy struct {
	client *Client
}

func NewProxy(c *Client) *Proxy {
	return &Proxy{client: c}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	q := r.URL.Query()
	sub := strings.Trim(strings.Join(q["path"], "/"), "/")
	if sub == "" {
		writeJSONError(w, http.StatusBadRequest, "Missing path query parameter")
		return
	}
	q.Del("path")

	target := p.client.baseURL + "/" + sub
	if enc := q.Encode(); enc != "" {
		target += "?" + enc
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid path")
		return
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.httpClient.Do(req)
	if err != nil {
		logger.Warn("Proxy upstream request failed", "error", err, "path", sub)
		writeJSONError(w, http.StatusBadGateway, "Failed to fetch from API")
		return
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.Debug("Proxy copy interrupted", "error", err, "path", sub)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
