package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/cardstudio/internal/deck"
	"codeberg.org/snonux/cardstudio/internal/draft"
	"codeberg.org/snonux/cardstudio/internal/flow"
)

type fakeExporter struct {
	mu    sync.Mutex
	decks []*deck.Deck
	err   error
}

func (f *fakeExporter) Export(d *deck.Deck) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.decks = append(f.decks, d)
	return "/exports/" + d.Metadata.Title + ".apkg", nil
}

type harness struct {
	t   *testing.T
	srv *Server
	exp *fakeExporter
}

func newHarness(t *testing.T) *harness {
	exp := &fakeExporter{}
	return &harness{t: t, srv: New(Config{Exporter: exp}), exp: exp}
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	return rec
}

// state decodes a snapshot response into a loose map so enum fields can
// be checked by their wire names
func (h *harness) state(rec *httptest.ResponseRecorder) map[string]any {
	h.t.Helper()
	var st map[string]any
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &st), rec.Body.String())
	return st
}

func (h *harness) newSession() string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/sessions", nil)
	require.Equal(h.t, http.StatusCreated, rec.Code)
	return h.state(rec)["id"].(string)
}

// ready creates a session with its metadata form completed
func (h *harness) ready() string {
	h.t.Helper()
	id := h.newSession()
	rec := h.do(http.MethodPut, "/api/sessions/"+id+"/metadata", deck.Metadata{Title: "Biology"})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	return id
}

func (h *harness) addCard(id, front, back string) {
	h.t.Helper()
	base := "/api/sessions/" + id
	rec := h.do(http.MethodPut, base+"/card", map[string]any{"face": "front", "content": draft.Text(front)})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	if back != "" {
		rec = h.do(http.MethodPut, base+"/card", map[string]any{"face": "back", "content": draft.Text(back)})
		require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec = h.do(http.MethodPost, base+"/advance", nil)
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestCreateSession(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	st := h.state(rec)
	assert.NotEmpty(t, st["id"])
	assert.Equal(t, true, st["mandatory"])
	assert.Equal(t, "add", st["mode"])
	assert.EqualValues(t, 1, st["current"])
	assert.Nil(t, st["overlay"])
	assert.Equal(t, 1, h.srv.Registry().Len())
}

func TestListAndDeleteSessions(t *testing.T) {
	h := newHarness(t)
	a := h.newSession()
	b := h.newSession()

	rec := h.do(http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Sessions []string `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.ElementsMatch(t, []string{a, b}, list.Sessions)

	rec = h.do(http.MethodDelete, "/api/sessions/"+a, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(http.MethodGet, "/api/sessions/"+a, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodDelete, "/api/sessions/"+a, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetadataForm(t *testing.T) {
	h := newHarness(t)
	id := h.newSession()
	base := "/api/sessions/" + id

	rec := h.do(http.MethodPut, base+"/metadata", deck.Metadata{Title: "   "})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), deck.ErrTitleRequired.Error())

	rec = h.do(http.MethodPut, base+"/metadata", deck.Metadata{Title: " Cells ", Tags: []string{"Bio", "bio"}})
	require.Equal(t, http.StatusOK, rec.Code)
	st := h.state(rec)
	assert.Equal(t, false, st["mandatory"])
	meta := st["metadata"].(map[string]any)
	assert.Equal(t, "Cells", meta["title"])
	assert.Equal(t, []any{"bio"}, meta["tags"])

	rec = h.do(http.MethodPost, base+"/form", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, h.state(rec)["mandatory"])
}

func TestBadRequests(t *testing.T) {
	h := newHarness(t)
	id := h.ready()
	base := "/api/sessions/" + id

	req := httptest.NewRequest(http.MethodPut, base+"/card", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPut, base+"/card", bytes.NewBufferString(`{"face":"front"}`))
	req.Header.Set("Content-Type", "text/plain")
	rec = httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = h.do(http.MethodPut, base+"/card", map[string]any{"face": "side", "content": draft.Text("x")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, base+"/select/zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdvance(t *testing.T) {
	h := newHarness(t)
	id := h.ready()
	base := "/api/sessions/" + id

	rec := h.do(http.MethodPost, base+"/advance", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "blank card must not be submitted")

	h.addCard(id, "Mitochondria", "Powerhouse of the cell")

	rec = h.do(http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := h.state(rec)
	assert.EqualValues(t, 2, st["current"])
	cards := st["cards"].([]any)
	require.Len(t, cards, 1)
	card := cards[0].(map[string]any)
	assert.EqualValues(t, 1, card["number"])
	assert.Equal(t, true, card["submitted"])
}

func TestFlipAndContentType(t *testing.T) {
	h := newHarness(t)
	id := h.ready()
	base := "/api/sessions/" + id

	rec := h.do(http.MethodPost, base+"/flip", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	visible := h.state(rec)["visible"].(map[string]any)
	assert.Equal(t, "back", visible["active"])

	// an empty face switches right away
	rec = h.do(http.MethodPost, base+"/content-type", map[string]any{"face": "front", "type": "camera"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodPut, base+"/card", map[string]any{
		"face":    "front",
		"content": draft.NewContent(draft.ContentCamera, "/tmp/photo.png"),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodPost, base+"/content-type", map[string]any{"face": "front", "type": "text"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	overlay := h.state(rec)["overlay"].(map[string]any)
	assert.Equal(t, "content_type_warning", overlay["kind"])

	// dialogs block navigation
	rec = h.do(http.MethodPost, base+"/view", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodPost, base+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := h.state(rec)
	assert.Nil(t, st["overlay"])
	front := st["visible"].(map[string]any)["front"].(map[string]any)
	assert.Equal(t, "text", front["type"])
	assert.Nil(t, front["payload"])

	rec = h.do(http.MethodPost, base+"/dismiss", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTextPrompt(t *testing.T) {
	h := newHarness(t)
	id := h.ready()
	base := "/api/sessions/" + id

	rec := h.do(http.MethodPost, base+"/prompt", map[string]any{"face": "back"})
	require.Equal(t, http.StatusOK, rec.Code)
	overlay := h.state(rec)["overlay"].(map[string]any)
	assert.Equal(t, "text_prompt", overlay["kind"])
	ticket := overlay["ticket"].(string)

	rec = h.do(http.MethodPost, base+"/prompt/not-a-ticket", map[string]any{"text": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodPost, base+"/prompt/"+ticket, map[string]any{"text": "Typed answer"})
	require.Equal(t, http.StatusOK, rec.Code)
	st := h.state(rec)
	assert.Nil(t, st["overlay"])
	back := st["visible"].(map[string]any)["back"].(map[string]any)
	assert.Equal(t, "Typed answer", back["payload"])

	// the ticket is consumed
	rec = h.do(http.MethodPost, base+"/prompt/"+ticket, map[string]any{"text": "again"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestViewAndSelect(t *testing.T) {
	h := newHarness(t)
	id := h.ready()
	base := "/api/sessions/" + id
	h.addCard(id, "one", "1")
	h.addCard(id, "two", "2")

	rec := h.do(http.MethodPost, base+"/select/1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "select needs view mode")

	rec = h.do(http.MethodPost, base+"/view", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "view", h.state(rec)["mode"])

	rec = h.do(http.MethodPost, base+"/select/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := h.state(rec)
	assert.Equal(t, "add", st["mode"])
	assert.EqualValues(t, 2, st["current"])
	front := st["visible"].(map[string]any)["front"].(map[string]any)
	assert.Equal(t, "two", front["payload"])

	rec = h.do(http.MethodPost, base+"/view", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodPost, base+"/add", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "add", h.state(rec)["mode"])
}

func TestDeleteFlow(t *testing.T) {
	h := newHarness(t)
	id := h.ready()
	base := "/api/sessions/" + id
	h.addCard(id, "one", "1")
	h.addCard(id, "two", "2")
	h.addCard(id, "three", "3")

	rec := h.do(http.MethodPost, base+"/delete", map[string]any{"numbers": []int{1}})
	assert.Equal(t, http.StatusConflict, rec.Code, "delete needs view mode")

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, base+"/view", nil).Code)

	rec = h.do(http.MethodPost, base+"/delete", map[string]any{"numbers": []int{}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"error":"no selection made"}`, rec.Body.String())

	rec = h.do(http.MethodGet, base, nil)
	assert.Nil(t, h.state(rec)["overlay"], "no-selection notice is closed by the server")

	rec = h.do(http.MethodPost, base+"/delete", map[string]any{"numbers": []int{2, 1, 2}})
	require.Equal(t, http.StatusAccepted, rec.Code)
	overlay := h.state(rec)["overlay"].(map[string]any)
	assert.Equal(t, "confirm_delete", overlay["kind"])
	assert.Equal(t, []any{1.0, 2.0}, overlay["numbers"])

	rec = h.do(http.MethodPost, base+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := h.state(rec)
	assert.Equal(t, false, st["selecting"])
	cards := st["cards"].([]any)
	require.Len(t, cards, 1)
	card := cards[0].(map[string]any)
	assert.EqualValues(t, 1, card["number"], "remaining cards are renumbered")
	assert.Equal(t, "three", card["front"].(map[string]any)["payload"])
}

func TestDeleteDismiss(t *testing.T) {
	h := newHarness(t)
	id := h.ready()
	base := "/api/sessions/" + id
	h.addCard(id, "one", "1")
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, base+"/view", nil).Code)

	require.Equal(t, http.StatusAccepted, h.do(http.MethodPost, base+"/delete", map[string]any{"numbers": []int{1}}).Code)
	rec := h.do(http.MethodPost, base+"/dismiss", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, h.state(rec)["cards"].([]any), 1)
}

func TestStats(t *testing.T) {
	h := newHarness(t)
	id := h.ready()
	h.addCard(id, "front only", "")
	h.addCard(id, "both", "sides")

	rec := h.do(http.MethodGet, "/api/sessions/"+id+"/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats deck.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Complete)
	assert.Equal(t, 1, stats.Incomplete)
	assert.Equal(t, 2, stats.Front[draft.ContentText])
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	id := h.ready()
	base := "/api/sessions/" + id

	rec := h.do(http.MethodPost, base+"/export", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "empty deck")

	h.addCard(id, "one", "1")
	rec = h.do(http.MethodPost, base+"/export", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Path  string `json:"path"`
		Cards int    `json:"cards"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "/exports/Biology.apkg", resp.Path)
	assert.Equal(t, 1, resp.Cards)
	require.Len(t, h.exp.decks, 1)
	assert.Equal(t, "Biology", h.exp.decks[0].Metadata.Title)

	h.exp.err = errors.New("disk full")
	rec = h.do(http.MethodPost, base+"/export", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestExportNotConfigured(t *testing.T) {
	srv := New(Config{})
	id := srv.Registry().Create()

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/export", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry(func() *flow.Controller {
		return flow.New(&flow.Config{Transition: flow.Instant{}})
	})
	id := reg.Create()
	require.NoError(t, reg.With(id, func(c *flow.Controller) error {
		return c.SetMetadata(deck.Metadata{Title: "Concurrent"})
	}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.With(id, func(c *flow.Controller) error {
				if err := c.SetText(flow.FaceFront, "card"); err != nil {
					return err
				}
				return c.Advance(t.Context())
			})
		}()
	}
	wg.Wait()

	require.NoError(t, reg.With(id, func(c *flow.Controller) error {
		assert.Len(t, c.Submitted(), 20)
		assert.Equal(t, 21, c.Current())
		return nil
	}))

	assert.ErrorIs(t, reg.With("missing", func(*flow.Controller) error { return nil }), ErrSessionNotFound)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrSessionNotFound, http.StatusNotFound},
		{flow.ErrUnknownTicket, http.StatusNotFound},
		{flow.ErrWrongMode, http.StatusConflict},
		{flow.ErrOverlayBusy, http.StatusConflict},
		{flow.ErrNoResponse, http.StatusConflict},
		{draft.ErrEmptySelection, http.StatusUnprocessableEntity},
		{flow.ErrEmptyCard, http.StatusUnprocessableEntity},
		{deck.ErrTitleTooLong, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestLibraryEndpoints(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/decks/folders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"folders":[]}`, rec.Body.String())

	id := h.newSession()
	base := "/api/sessions/" + id
	require.Equal(t, http.StatusOK, h.do(http.MethodPut, base+"/metadata", deck.Metadata{Title: "Cells", Folder: "Biology"}).Code)
	h.addCard(id, "one", "1")
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, base+"/export", nil).Code)
	deckID := h.exp.decks[0].ID

	rec = h.do(http.MethodGet, "/api/decks/folders", nil)
	assert.JSONEq(t, `{"folders":["Biology"]}`, rec.Body.String())

	var list struct {
		Decks []deckSummary `json:"decks"`
	}
	rec = h.do(http.MethodGet, "/api/decks?folder=Biology", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Decks, 1)
	assert.Equal(t, deckID, list.Decks[0].ID)
	assert.Equal(t, 1, list.Decks[0].Stats.Total)

	rec = h.do(http.MethodGet, "/api/decks?favorites=true", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Decks)

	rec = h.do(http.MethodPost, "/api/decks/"+deckID+"/favorite", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"favorite":true}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/decks?favorites=true", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Decks, 1)

	rec = h.do(http.MethodGet, "/api/decks/"+deckID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"Cells"`)

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/decks/"+deckID, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/decks/"+deckID, nil).Code)
}
