package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/imgsim/builder"
	"github.com/viant/imgsim/embed"
	"github.com/viant/imgsim/index"
	"github.com/viant/imgsim/journal"
	"github.com/viant/imgsim/service"
)

var table = map[string][]float32{
	"red":   {1, 0},
	"green": {0, 1},
	"mixed": {0.6, 0.8},
}

func tableProvider() embed.Provider {
	return embed.Func{Name: "table-v1", Fn: func(_ context.Context, image []byte) ([]float32, error) {
		v, ok := table[string(image)]
		if !ok {
			return nil, fmt.Errorf("%w: unknown image", embed.ErrEmbedding)
		}
		return v, nil
	}}
}

func readyService(t *testing.T) *service.Service {
	t.Helper()
	svc, err := service.New(service.WithProvider(tableProvider()))
	require.NoError(t, err)
	store, err := index.FromRows(
		[]string{"r.png", "g.png", "m.png"},
		[][]float32{{1, 0}, {0, 1}, {0.6, 0.8}},
		index.Meta{Provider: "table-v1"},
	)
	require.NoError(t, err)
	require.NoError(t, svc.Install(store))
	return svc
}

func multipartBody(t *testing.T, field string, content []byte, topk string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if field != "" {
		part, err := w.CreateFormFile(field, "query.png")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	if topk != "" {
		require.NoError(t, w.WriteField("topk", topk))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestSearch(t *testing.T) {
	s := New(readyService(t), nil, Config{TopK: 2}, nil)

	body, ct := multipartBody(t, "file", []byte("red"), "")
	req := httptest.NewRequest(http.MethodPost, "/search", body)
	req.Header.Set("Content-Type", ct)
	rec := do(t, s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[searchResponse](t, rec)
	require.Len(t, resp.Matches, 2)
	assert.Equal(t, "r.png", resp.Matches[0].Label)
	assert.InDelta(t, 1.0, resp.Matches[0].Score, 1e-6)
	assert.Equal(t, "m.png", resp.Matches[1].Label)
	assert.Contains(t, rec.Body.String(), `"filename":"r.png"`)

	body, ct = multipartBody(t, "file", []byte("green"), "1")
	req = httptest.NewRequest(http.MethodPost, "/search", body)
	req.Header.Set("Content-Type", ct)
	rec = do(t, s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[searchResponse](t, rec)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "g.png", resp.Matches[0].Label)
}

func TestSearch_Errors(t *testing.T) {
	s := New(readyService(t), nil, Config{}, nil)

	cases := []struct {
		name    string
		field   string
		content string
		topk    string
		code    int
	}{
		{name: "missing file", field: "", topk: "3", code: http.StatusBadRequest},
		{name: "bad topk", field: "file", content: "red", topk: "many", code: http.StatusBadRequest},
		{name: "zero topk", field: "file", content: "red", topk: "0", code: http.StatusBadRequest},
		{name: "undecodable image", field: "file", content: "noise", code: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, ct := multipartBody(t, tc.field, []byte(tc.content), tc.topk)
			req := httptest.NewRequest(http.MethodPost, "/search", body)
			req.Header.Set("Content-Type", ct)
			rec := do(t, s, req)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[errorResponse](t, rec).Error)
		})
	}
}

func TestSearch_NotReady(t *testing.T) {
	svc, err := service.New(service.WithProvider(tableProvider()))
	require.NoError(t, err)
	s := New(svc, nil, Config{}, nil)

	body, ct := multipartBody(t, "file", []byte("red"), "")
	req := httptest.NewRequest(http.MethodPost, "/search", body)
	req.Header.Set("Content-Type", ct)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, s, req).Code)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[map[string]any](t, rec)
	assert.Equal(t, false, health["ready"])
	assert.Equal(t, "uninitialized", health["state"])
	assert.Equal(t, float64(0), health["index_size"])
}

func TestSearch_UploadLimit(t *testing.T) {
	s := New(readyService(t), nil, Config{MaxUploadMB: 1}, nil)
	body, ct := multipartBody(t, "file", bytes.Repeat([]byte("x"), 2<<20), "")
	req := httptest.NewRequest(http.MethodPost, "/search", body)
	req.Header.Set("Content-Type", ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, do(t, s, req).Code)
}

func TestSearchVector(t *testing.T) {
	s := New(readyService(t), nil, Config{TopK: 5}, nil)

	post := func(payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/search/vector", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		return do(t, s, req)
	}

	rec := post(`{"vector":[0,1],"topk":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "g.png", decode[searchResponse](t, rec).Matches[0].Label)

	rec = post(`{"vector":[0,1]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[searchResponse](t, rec).Matches, 3)

	assert.Equal(t, http.StatusUnprocessableEntity, post(`{"vector":[0,1,0]}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"vector":[0,1],"topk":-1}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"vector":[0,1],"topk":0}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"vector":`).Code)
}

func TestHealth(t *testing.T) {
	s := New(readyService(t), nil, Config{}, nil)
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	health := decode[map[string]any](t, rec)
	assert.Equal(t, true, health["ready"])
	assert.Equal(t, "ready", health["state"])
	assert.Equal(t, float64(3), health["index_size"])
	assert.Equal(t, float64(2), health["dimension"])
	assert.Equal(t, "table-v1", health["provider"])
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	s := New(readyService(t), nil, Config{IndexDir: dir}, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/validate", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	store, err := index.FromRows([]string{"a"}, [][]float32{{1, 0}}, index.Meta{})
	require.NoError(t, err)
	require.NoError(t, index.Save(store, dir))
	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/validate", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[validateResponse](t, rec)
	assert.True(t, resp.Consistent)
	assert.True(t, resp.SuspiciousDimension)
	assert.NotEmpty(t, resp.Warnings)

	require.NoError(t, os.WriteFile(filepath.Join(dir, index.VectorsFile), []byte("IMXV"), 0o644))
	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/validate", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

type history struct {
	entries []journal.Entry
	skips   map[string][]builder.Skip
}

func (h *history) List(_ context.Context, limit int) ([]journal.Entry, error) {
	if limit > 0 && limit < len(h.entries) {
		return h.entries[:limit], nil
	}
	return h.entries, nil
}

func (h *history) Skips(_ context.Context, id string) ([]builder.Skip, error) {
	if s, ok := h.skips[id]; ok {
		return s, nil
	}
	return nil, errors.New("boom")
}

func TestBuilds(t *testing.T) {
	h := &history{
		entries: []journal.Entry{{BuildID: "b2", Status: journal.StatusOK}, {BuildID: "b1", Status: journal.StatusFailed}},
		skips:   map[string][]builder.Skip{"b2": {{Label: "x.png", Reason: "decode"}}},
	}
	s := New(readyService(t), h, Config{}, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/builds?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]journal.Entry](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, "b2", entries[0].BuildID)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/builds/b2/skips", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []builder.Skip{{Label: "x.png", Reason: "decode"}}, decode[[]builder.Skip](t, rec))

	assert.Equal(t, http.StatusInternalServerError, do(t, s, httptest.NewRequest(http.MethodGet, "/builds/zz/skips", nil)).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, httptest.NewRequest(http.MethodGet, "/builds?limit=x", nil)).Code)

	noJournal := New(readyService(t), nil, Config{}, nil)
	rec = do(t, noJournal, httptest.NewRequest(http.MethodGet, "/builds", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRebuild(t *testing.T) {
	dataset := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataset, "a.png"), []byte("red"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataset, "b.png"), []byte("green"), 0o644))
	indexDir := filepath.Join(t.TempDir(), "model_data")

	svc, err := service.New(service.WithProvider(tableProvider()))
	require.NoError(t, err)
	s := New(svc, nil, Config{Dataset: dataset, IndexDir: indexDir}, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/rebuild", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool { return svc.Status().Ready }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, 2, svc.Status().IndexSize)

	s.rebuilding.Store(true)
	rec = do(t, s, httptest.NewRequest(http.MethodPost, "/rebuild", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStaticImages(t *testing.T) {
	dataset := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dataset, "cats"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataset, "cats", "a.png"), []byte("pixels"), 0o644))
	frontend := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(frontend, "index.html"), []byte("<html>imgsim</html>"), 0o644))

	s := New(readyService(t), nil, Config{Dataset: dataset, Frontend: frontend}, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/images/cats/a.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pixels", rec.Body.String())

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "imgsim")
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(service.ErrNotReady))
	assert.Equal(t, http.StatusBadRequest, StatusCode(fmt.Errorf("wrap: %w", index.ErrInvalidArgument)))
	assert.Equal(t, http.StatusBadRequest, StatusCode(embed.ErrEmbedding))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusCode(index.ErrDimensionMismatch))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("disk on fire")))
}
