package integrations

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const trelloBase = "https://api.trello.com/1"

// cardFields is the projection requested on every card fetch.
const cardFields = "name,desc,idList,closed,dateLastActivity,url"

var hexID = regexp.MustCompile(`^[a-f0-9]{24}$`)

// ConfigError reports missing credentials or board reference. It is raised
// before any network call is made.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "trello: missing configuration: " + strings.Join(e.Missing, ", ")
}

// ListNotFoundError means a configured list display name matched nothing on
// the board, even after one cache refresh.
type ListNotFoundError struct {
	Name      string
	Available []string
}

func (e *ListNotFoundError) Error() string {
	return fmt.Sprintf("trello: list not found on board: %q (available: %s)",
		e.Name, strings.Join(e.Available, ", "))
}

// RemoteError is any non-2xx response from the Trello API. Calls are never
// retried; callers decide what a failure means.
type RemoteError struct {
	Op     string
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("trello: %s returned %d: %s", e.Op, e.Status, e.Body)
}

// Board is the resolved board metadata.
type Board struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	ShortLink string `json:"shortLink"`
}

// Card is the wire representation with the fixed field projection.
type Card struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Desc         string `json:"desc"`
	ListID       string `json:"idList"`
	Closed       bool   `json:"closed"`
	LastActivity string `json:"dateLastActivity"`
	URL          string `json:"url"`
}

// CardPatch is a partial card update; nil fields are not sent.
type CardPatch struct {
	Name *string
	Desc *string
}

// TrelloClient talks to the Trello REST API for one board. The name to
// list-id cache is scoped to the client instance; construct one per request.
type TrelloClient struct {
	Client   *http.Client
	APIKey   string
	APIToken string
	BaseURL  string

	BoardID string
	Board   Board

	lists    map[string]string
	pageSize int
}

// NewTrelloClient checks credentials eagerly, resolves the board reference
// (24-hex id, shortLink, or full board URL) and fetches the board metadata.
func NewTrelloClient(key, token, boardRef string) (*TrelloClient, error) {
	return NewTrelloClientAt(&http.Client{Timeout: 30 * time.Second}, key, token, boardRef, trelloBase)
}

// NewTrelloClientAt is NewTrelloClient against an explicit endpoint. Tests
// point it at a stub server.
func NewTrelloClientAt(client *http.Client, key, token, boardRef, baseURL string) (*TrelloClient, error) {
	var missing []string
	if strings.TrimSpace(key) == "" {
		missing = append(missing, "TRELLO_KEY")
	}
	if strings.TrimSpace(token) == "" {
		missing = append(missing, "TRELLO_TOKEN")
	}
	if strings.TrimSpace(boardRef) == "" {
		missing = append(missing, "TRELLO_BOARD")
	}
	if len(missing) > 0 {
		return nil, &ConfigError{Missing: missing}
	}

	tc := &TrelloClient{
		Client:   client,
		APIKey:   strings.TrimSpace(key),
		APIToken: strings.TrimSpace(token),
		BaseURL:  baseURL,
		pageSize: 1000,
	}

	ref := extractBoardRef(boardRef)

	var board Board
	if err := tc.get("/boards/"+ref, url.Values{"fields": {"id,name,url,shortLink"}}, &board); err != nil {
		return nil, err
	}
	tc.Board = board
	tc.BoardID = board.ID
	return tc, nil
}

// ListNames refetches all lists on the board and rebuilds the name to id cache
// unconditionally. Names are trimmed of surrounding whitespace only; no case
// folding, no emoji normalisation.
func (tc *TrelloClient) ListNames() (map[string]string, error) {
	var lists []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	params := url.Values{"filter": {"all"}, "fields": {"name"}}
	if err := tc.get("/boards/"+tc.BoardID+"/lists", params, &lists); err != nil {
		return nil, err
	}
	cache := make(map[string]string, len(lists))
	for _, l := range lists {
		cache[strings.TrimSpace(l.Name)] = l.ID
	}
	tc.lists = cache
	return cache, nil
}

// ListID returns the list id for a display name, refreshing the cache at most
// once on a miss.
func (tc *TrelloClient) ListID(name string) (string, error) {
	wanted := strings.TrimSpace(name)
	if tc.lists == nil {
		if _, err := tc.ListNames(); err != nil {
			return "", err
		}
	}
	if id, ok := tc.lists[wanted]; ok {
		return id, nil
	}
	if _, err := tc.ListNames(); err != nil {
		return "", err
	}
	if id, ok := tc.lists[wanted]; ok {
		return id, nil
	}
	available := make([]string, 0, len(tc.lists))
	for n := range tc.lists {
		available = append(available, n)
	}
	return "", &ListNotFoundError{Name: wanted, Available: available}
}

// CreateList adds a list to the board. pos is "top" or "bottom".
func (tc *TrelloClient) CreateList(name, pos string) (string, error) {
	form := url.Values{}
	form.Set("idBoard", tc.BoardID)
	form.Set("name", name)
	form.Set("pos", pos)
	var created struct {
		ID string `json:"id"`
	}
	if err := tc.send(http.MethodPost, "/lists", form, &created); err != nil {
		return "", err
	}
	if tc.lists != nil {
		tc.lists[strings.TrimSpace(name)] = created.ID
	}
	return created.ID, nil
}

// EnsureList resolves the named list, creating it when the board does not
// have it yet. Board bootstrap uses this; the dashboard itself never creates
// lists.
func (tc *TrelloClient) EnsureList(name, pos string) (string, error) {
	id, err := tc.ListID(name)
	if err == nil {
		return id, nil
	}
	var notFound *ListNotFoundError
	if !errors.As(err, &notFound) {
		return "", err
	}
	return tc.CreateList(name, pos)
}

// Label is a board label.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (tc *TrelloClient) Labels() ([]Label, error) {
	var labels []Label
	err := tc.get("/boards/"+tc.BoardID+"/labels", url.Values{"limit": {"1000"}}, &labels)
	return labels, err
}

func (tc *TrelloClient) CreateLabel(name, color string) (Label, error) {
	form := url.Values{}
	form.Set("idBoard", tc.BoardID)
	form.Set("name", name)
	form.Set("color", color)
	var label Label
	err := tc.send(http.MethodPost, "/labels", form, &label)
	return label, err
}

// EnsureLabel matches labels by trimmed name; the color only applies when
// the label has to be created.
func (tc *TrelloClient) EnsureLabel(name, color string) (string, error) {
	labels, err := tc.Labels()
	if err != nil {
		return "", err
	}
	wanted := strings.TrimSpace(name)
	for _, lb := range labels {
		if strings.TrimSpace(lb.Name) == wanted {
			return lb.ID, nil
		}
	}
	created, err := tc.CreateLabel(name, color)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// ListCards fetches every card in a list, paging until a short page rather
// than trusting the API's default page size.
func (tc *TrelloClient) ListCards(listName string) ([]Card, error) {
	listID, err := tc.ListID(listName)
	if err != nil {
		return nil, err
	}

	var all []Card
	before := ""
	for {
		params := url.Values{
			"fields": {cardFields},
			"limit":  {fmt.Sprintf("%d", tc.pageSize)},
		}
		if before != "" {
			params.Set("before", before)
		}
		var page []Card
		if err := tc.get("/lists/"+listID+"/cards", params, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < tc.pageSize {
			return all, nil
		}
		// Trello pages newest-to-oldest; the cursor is the last card of the
		// page just read.
		before = page[len(page)-1].ID
	}
}

func (tc *TrelloClient) GetCard(cardID string) (Card, error) {
	var card Card
	err := tc.get("/cards/"+cardID, url.Values{"fields": {cardFields}}, &card)
	return card, err
}

func (tc *TrelloClient) CreateCard(listName, title, desc string) (Card, error) {
	listID, err := tc.ListID(listName)
	if err != nil {
		return Card{}, err
	}
	form := url.Values{}
	form.Set("idList", listID)
	form.Set("name", title)
	form.Set("desc", desc)
	var card Card
	err = tc.send(http.MethodPost, "/cards", form, &card)
	return card, err
}

func (tc *TrelloClient) UpdateCard(cardID string, patch CardPatch) (Card, error) {
	form := url.Values{}
	if patch.Name != nil {
		form.Set("name", *patch.Name)
	}
	if patch.Desc != nil {
		form.Set("desc", *patch.Desc)
	}
	var card Card
	err := tc.send(http.MethodPut, "/cards/"+cardID, form, &card)
	return card, err
}

// MoveCard changes the card's list membership. This is the only transition
// primitive; callers needing a description change as well must update first,
// then move.
func (tc *TrelloClient) MoveCard(cardID, targetListName string) (Card, error) {
	listID, err := tc.ListID(targetListName)
	if err != nil {
		return Card{}, err
	}
	form := url.Values{}
	form.Set("idList", listID)
	var card Card
	err = tc.send(http.MethodPut, "/cards/"+cardID, form, &card)
	return card, err
}

// ArchiveCard sets closed=true. Nothing is permanently deleted.
func (tc *TrelloClient) ArchiveCard(cardID string) error {
	form := url.Values{}
	form.Set("closed", "true")
	return tc.send(http.MethodPut, "/cards/"+cardID, form, nil)
}

func (tc *TrelloClient) AddComment(cardID, text string) error {
	form := url.Values{}
	form.Set("text", text)
	return tc.send(http.MethodPost, "/cards/"+cardID+"/actions/comments", form, nil)
}

// AttachFile uploads a file as a card attachment via multipart form data.
func (tc *TrelloClient) AttachFile(cardID, filename string, data []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("key", tc.APIKey); err != nil {
		return fmt.Errorf("failed to build attachment form: %w", err)
	}
	if err := mw.WriteField("token", tc.APIToken); err != nil {
		return fmt.Errorf("failed to build attachment form: %w", err)
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to build attachment form: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("failed to build attachment form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to build attachment form: %w", err)
	}

	apiURL := tc.BaseURL + "/cards/" + cardID + "/attachments"
	req, err := http.NewRequest(http.MethodPost, apiURL, &buf)
	if err != nil {
		return fmt.Errorf("failed to create attachment request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := tc.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send attachment request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return &RemoteError{Op: "POST /cards/" + cardID + "/attachments", Status: resp.StatusCode, Body: string(bodyBytes)}
	}
	return nil
}

// extractBoardRef pulls the shortLink out of a full board URL; raw ids and
// shortLinks pass through untouched.
func extractBoardRef(boardRef string) string {
	ref := strings.TrimSpace(boardRef)
	if i := strings.Index(ref, "trello.com/b/"); i >= 0 {
		ref = ref[i+len("trello.com/b/"):]
		if j := strings.IndexByte(ref, '/'); j >= 0 {
			ref = ref[:j]
		}
	}
	return ref
}

// IsListID reports whether s looks like a raw Trello id rather than a
// display name.
func IsListID(s string) bool {
	return hexID.MatchString(strings.ToLower(strings.TrimSpace(s)))
}

func (tc *TrelloClient) get(path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("key", tc.APIKey)
	params.Set("token", tc.APIToken)

	apiURL := tc.BaseURL + path + "?" + params.Encode()
	req, err := http.NewRequest(http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create get request: %w", err)
	}
	return tc.do(req, "GET "+path, out)
}

func (tc *TrelloClient) send(method, path string, form url.Values, out any) error {
	if form == nil {
		form = url.Values{}
	}
	form.Set("key", tc.APIKey)
	form.Set("token", tc.APIToken)

	req, err := http.NewRequest(method, tc.BaseURL+path, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", strings.ToLower(method), err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return tc.do(req, method+" "+path, out)
}

func (tc *TrelloClient) do(req *http.Request, op string, out any) error {
	resp, err := tc.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return &RemoteError{Op: op, Status: resp.StatusCode, Body: string(bodyBytes)}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode Trello response: %w", err)
	}
	return nil
}
