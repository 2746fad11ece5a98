package runner

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
)

var fixtureCategories = []string{"Engine", "Brakes", "Lighting", "Wheels", "Exhaust"}

// fakeMarketplace 实现 items 接口的内存版本，带可选的错误行为
type fakeMarketplace struct {
	mu     sync.Mutex
	items  []map[string]any
	nextID int

	ignoreFilter    bool
	reverseSort     bool
	ignoreLimit     bool
	createWithoutID bool
}

func newFakeMarketplace() *fakeMarketplace {
	m := &fakeMarketplace{nextID: 16}
	for i := 1; i <= 15; i++ {
		m.items = append(m.items, map[string]any{
			"id":          float64(i),
			"title":       fmt.Sprintf("Part %d", i),
			"price":       float64((i*37)%100) + 0.99,
			"category":    fixtureCategories[i%len(fixtureCategories)],
			"description": "Fixture part used by the verifier tests.",
			"image":       "https://example.com/part.jpg",
			"condition":   "used",
			"quantity":    float64(i),
			"tags":        []any{"fixture"},
			"location":    "Springfield, IL",
			"createdAt":   "2024-01-01T00:00:00Z",
		})
	}
	m.items[0]["title"] = "Brake Pad Set"
	return m
}

func startFakeMarketplace(t *testing.T, m *fakeMarketplace) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(m)
	t.Cleanup(server.Close)
	return server
}

func (m *fakeMarketplace) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := strings.Trim(r.URL.Path, "/")
	switch {
	case path == "items" && r.Method == http.MethodGet:
		m.list(w, r)
	case path == "items" && r.Method == http.MethodPost:
		m.create(w, r)
	case strings.HasPrefix(path, "items/"):
		m.single(w, r, strings.TrimPrefix(path, "items/"))
	default:
		http.NotFound(w, r)
	}
}

func (m *fakeMarketplace) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result := make([]map[string]any, 0, len(m.items))
	for _, item := range m.items {
		if q := strings.ToLower(query.Get("q")); q != "" &&
			!strings.Contains(strings.ToLower(item["title"].(string)), q) {
			continue
		}
		if c := query.Get("category"); c != "" && !m.ignoreFilter && item["category"] != c {
			continue
		}
		result = append(result, item)
	}

	if query.Get("_sort") == "price" {
		desc := query.Get("_order") == "desc" != m.reverseSort
		sort.SliceStable(result, func(i, j int) bool {
			if desc {
				return result[i]["price"].(float64) > result[j]["price"].(float64)
			}
			return result[i]["price"].(float64) < result[j]["price"].(float64)
		})
	}

	if limit, err := strconv.Atoi(query.Get("_limit")); err == nil && limit > 0 && !m.ignoreLimit {
		page, _ := strconv.Atoi(query.Get("_page"))
		if page < 1 {
			page = 1
		}
		start := min((page-1)*limit, len(result))
		end := min(start+limit, len(result))
		result = result[start:end]
	}

	writeJSON(w, http.StatusOK, result)
}

func (m *fakeMarketplace) create(w http.ResponseWriter, r *http.Request) {
	item, err := decodeItem(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !m.createWithoutID {
		item["id"] = float64(m.nextID)
		m.nextID++
	}
	m.items = append(m.items, item)
	writeJSON(w, http.StatusCreated, item)
}

func (m *fakeMarketplace) single(w http.ResponseWriter, r *http.Request, id string) {
	index := -1
	for i, item := range m.items {
		if fmt.Sprint(item["id"]) == id {
			index = i
			break
		}
	}
	if index < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{})
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, m.items[index])
	case http.MethodPut:
		item, err := decodeItem(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		item["id"] = m.items[index]["id"]
		m.items[index] = item
		writeJSON(w, http.StatusOK, item)
	case http.MethodDelete:
		m.items = append(m.items[:index], m.items[index+1:]...)
		writeJSON(w, http.StatusOK, map[string]any{})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func decodeItem(body io.Reader) (map[string]any, error) {
	var item map[string]any
	if err := json.NewDecoder(body).Decode(&item); err != nil {
		return nil, err
	}
	return item, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
