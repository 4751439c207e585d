// Package trellotest provides an in-memory fake of the slice of the Trello
// REST API this application touches, for use in client and handler tests.
package trellotest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

type List struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type Card struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Desc         string `json:"desc"`
	ListID       string `json:"idList"`
	Closed       bool   `json:"closed"`
	LastActivity string `json:"dateLastActivity"`
	URL          string `json:"url"`

	seq int
}

// Server is a fake single-board Trello. All mutating endpoints behave like
// the real thing for the operations the board client issues.
type Server struct {
	mu sync.Mutex

	BoardID   string
	ShortLink string
	BoardName string

	lists   []List
	cards   map[string]*Card
	nextSeq int

	Labels []Label

	Comments    map[string][]string
	Attachments map[string][]string

	// ListFetches counts how many times the board's lists were fetched;
	// tests use it to pin the at-most-one-refresh contract.
	ListFetches int

	srv *httptest.Server
}

func New(listNames ...string) *Server {
	s := &Server{
		BoardID:     "5f0000000000000000000001",
		ShortLink:   "abCdEf12",
		BoardName:   "Test Board",
		cards:       map[string]*Card{},
		Comments:    map[string][]string{},
		Attachments: map[string][]string{},
	}
	for _, name := range listNames {
		s.AddList(name)
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

func (s *Server) URL() string { return s.srv.URL }
func (s *Server) Close()      { s.srv.Close() }

func (s *Server) HTTPClient() *http.Client { return s.srv.Client() }

func (s *Server) AddList(name string) List {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addListLocked(name)
}

func (s *Server) addListLocked(name string) List {
	l := List{ID: fmt.Sprintf("5f00000000000000000001%02x", len(s.lists)+1), Name: name}
	s.lists = append(s.lists, l)
	return l
}

func (s *Server) ListID(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lists {
		if l.Name == name {
			return l.ID
		}
	}
	return ""
}

// SeedCard places a card directly into a list, bypassing HTTP.
func (s *Server) SeedCard(listName, name, desc string) Card {
	listID := s.ListID(listName)
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.newCardLocked(listID, name, desc)
}

func (s *Server) newCardLocked(listID, name, desc string) *Card {
	s.nextSeq++
	id := fmt.Sprintf("6f%022x", s.nextSeq)
	card := &Card{
		ID:           id,
		Name:         name,
		Desc:         desc,
		ListID:       listID,
		LastActivity: "2026-01-01T00:00:00.000Z",
		URL:          "https://trello.com/c/" + id,
		seq:          s.nextSeq,
	}
	s.cards[id] = card
	return card
}

// CardsIn returns the open cards of a list, newest first.
func (s *Server) CardsIn(listName string) []Card {
	listID := s.ListID(listName)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cardsInLocked(listID)
}

func (s *Server) cardsInLocked(listID string) []Card {
	var out []Card
	for _, c := range s.cards {
		if c.ListID == listID && !c.Closed {
			out = append(out, *c)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].seq > out[i].seq {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

func (s *Server) Card(id string) (Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return Card{}, false
	}
	return *c, true
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil && !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if r.Form.Get("key") == "" || r.Form.Get("token") == "" {
			http.Error(w, "invalid key", http.StatusUnauthorized)
			return
		}
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case len(parts) == 2 && parts[0] == "boards":
		ref := parts[1]
		if ref != s.BoardID && ref != s.ShortLink {
			http.Error(w, "board not found", http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]string{
			"id": s.BoardID, "name": s.BoardName,
			"url": "https://trello.com/b/" + s.ShortLink, "shortLink": s.ShortLink,
		})

	case len(parts) == 3 && parts[0] == "boards" && parts[2] == "lists":
		if parts[1] != s.BoardID {
			http.Error(w, "board not found", http.StatusNotFound)
			return
		}
		s.ListFetches++
		writeJSON(w, s.lists)

	case len(parts) == 1 && parts[0] == "lists" && r.Method == http.MethodPost:
		if r.Form.Get("idBoard") != s.BoardID {
			http.Error(w, "invalid idBoard", http.StatusBadRequest)
			return
		}
		writeJSON(w, s.addListLocked(r.Form.Get("name")))

	case len(parts) == 3 && parts[0] == "boards" && parts[2] == "labels":
		if parts[1] != s.BoardID {
			http.Error(w, "board not found", http.StatusNotFound)
			return
		}
		labels := s.Labels
		if labels == nil {
			labels = []Label{}
		}
		writeJSON(w, labels)

	case len(parts) == 1 && parts[0] == "labels" && r.Method == http.MethodPost:
		if r.Form.Get("idBoard") != s.BoardID {
			http.Error(w, "invalid idBoard", http.StatusBadRequest)
			return
		}
		lb := Label{
			ID:    fmt.Sprintf("5f000000000000000000f0%02x", len(s.Labels)+1),
			Name:  r.Form.Get("name"),
			Color: r.Form.Get("color"),
		}
		s.Labels = append(s.Labels, lb)
		writeJSON(w, lb)

	case len(parts) == 3 && parts[0] == "lists" && parts[2] == "cards":
		cards := s.cardsInLocked(parts[1])
		if before := r.Form.Get("before"); before != "" {
			cutoff := 0
			if c, ok := s.cards[before]; ok {
				cutoff = c.seq
			}
			var filtered []Card
			for _, c := range cards {
				if s.cards[c.ID].seq < cutoff {
					filtered = append(filtered, c)
				}
			}
			cards = filtered
		}
		if limit, err := strconv.Atoi(r.Form.Get("limit")); err == nil && limit > 0 && len(cards) > limit {
			cards = cards[:limit]
		}
		if cards == nil {
			cards = []Card{}
		}
		writeJSON(w, cards)

	case len(parts) == 1 && parts[0] == "cards" && r.Method == http.MethodPost:
		listID := r.Form.Get("idList")
		found := false
		for _, l := range s.lists {
			if l.ID == listID {
				found = true
			}
		}
		if !found {
			http.Error(w, "invalid idList", http.StatusBadRequest)
			return
		}
		card := s.newCardLocked(listID, r.Form.Get("name"), r.Form.Get("desc"))
		writeJSON(w, card)

	case len(parts) == 2 && parts[0] == "cards" && r.Method == http.MethodGet:
		card, ok := s.cards[parts[1]]
		if !ok {
			http.Error(w, "card not found", http.StatusNotFound)
			return
		}
		writeJSON(w, card)

	case len(parts) == 2 && parts[0] == "cards" && r.Method == http.MethodPut:
		card, ok := s.cards[parts[1]]
		if !ok {
			http.Error(w, "card not found", http.StatusNotFound)
			return
		}
		if _, present := r.Form["name"]; present {
			card.Name = r.Form.Get("name")
		}
		if _, present := r.Form["desc"]; present {
			card.Desc = r.Form.Get("desc")
		}
		if v := r.Form.Get("idList"); v != "" {
			card.ListID = v
		}
		if v := r.Form.Get("closed"); v != "" {
			card.Closed = v == "true"
		}
		writeJSON(w, card)

	case len(parts) == 4 && parts[0] == "cards" && parts[2] == "actions" && parts[3] == "comments":
		s.Comments[parts[1]] = append(s.Comments[parts[1]], r.Form.Get("text"))
		writeJSON(w, map[string]string{"id": "comment"})

	case len(parts) == 3 && parts[0] == "cards" && parts[2] == "attachments":
		if err := r.ParseMultipartForm(16 << 20); err != nil {
			http.Error(w, "bad multipart", http.StatusBadRequest)
			return
		}
		if r.MultipartForm.Value["key"] == nil || r.MultipartForm.Value["token"] == nil {
			http.Error(w, "invalid key", http.StatusUnauthorized)
			return
		}
		files := r.MultipartForm.File["file"]
		if len(files) == 0 {
			http.Error(w, "no file", http.StatusBadRequest)
			return
		}
		s.Attachments[parts[1]] = append(s.Attachments[parts[1]], files[0].Filename)
		writeJSON(w, map[string]string{"id": "attachment"})

	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
