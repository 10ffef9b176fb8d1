package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/tick-tracker/internal/api"
	"github.com/Tiliavir/tick-tracker/internal/model"
)

func newClient(t *testing.T, h http.HandlerFunc) *api.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := api.New(srv.URL+"/", "secret", api.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNewRequiresKey(t *testing.T) {
	_, err := api.New("https://example.com/api/v2", "  ")
	assert.ErrorIs(t, err, api.ErrMissingAPIKey)

	_, err = api.New("not a url", "k")
	assert.Error(t, err)
}

func TestEntriesByDateSendsHeadersAndQuery(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/entries.json", r.URL.Path)
		assert.Equal(t, "2024-01-10", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2024-01-10", r.URL.Query().Get("end_date"))
		assert.Equal(t, "Token token=secret", r.Header.Get("Authorization"))
		assert.Equal(t, api.UserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = io.WriteString(w, `[{"id":1,"date":"2024-01-10","hours":"1.5","notes":"x","task_id":7}]`)
	})

	entries, err := c.EntriesByDate(context.Background(), "2024-01-10")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ID)
	assert.InDelta(t, 1.5, float64(entries[0].Hours), 1e-9)
	require.NotNil(t, entries[0].TaskID)
	assert.Equal(t, int64(7), *entries[0].TaskID)
}

func TestEntriesEmptyBody(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {})
	entries, err := c.EntriesByDate(context.Background(), "2024-01-10")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"json object", 422, `{"hours": ["must be positive"]}`, `Request failed (422 Unprocessable Entity): {"hours":["must be positive"]}`},
		{"json string", 400, `"bad date"`, `Request failed (400 Bad Request): bad date`},
		{"plain text", 401, "HTTP Token: Access denied.\n", "Request failed (401 Unauthorized): HTTP Token: Access denied.\n"},
		{"empty", 500, "", "Request failed (500 Internal Server Error)."},
		{"json number", 404, "42", "Request failed (404 Not Found)."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.Projects(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())

			var apiErr *api.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestCreateEntry(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/entries.json", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2024-01-10", body["date"])
		assert.Equal(t, 2.5, body["hours"])
		assert.Equal(t, float64(7), body["task_id"])
		_, hasNotes := body["notes"]
		assert.False(t, hasNotes, "empty notes must be omitted")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":99,"date":"2024-01-10","hours":2.5,"task_id":7}`)
	})

	e, err := c.CreateEntry(context.Background(), model.EntryPayload{Date: "2024-01-10", Hours: 2.5, TaskID: model.ID(7)})
	require.NoError(t, err)
	assert.Equal(t, int64(99), e.ID)
}

func TestCreateEntryWithoutIDFails(t *testing.T) {
	for _, body := range []string{`{"date":"2024-01-10"}`, ``, `null`, `[]`} {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, body)
		})
		_, err := c.CreateEntry(context.Background(), model.EntryPayload{Date: "2024-01-10"})
		require.Error(t, err, "body %q", body)
		assert.Equal(t, "Create failed: unexpected response from server.", err.Error())
	}
}

func TestUpdateAndDeleteEntry(t *testing.T) {
	var seen []string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPut {
			_, _ = io.WriteString(w, `{"id":5,"date":"2024-01-11","hours":1}`)
		}
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
		}
	})

	e, err := c.UpdateEntry(context.Background(), 5, model.EntryPayload{Date: "2024-01-11", Hours: 1})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-11", e.Date)

	require.NoError(t, c.DeleteEntry(context.Background(), 5))
	assert.Equal(t, []string{"PUT /entries/5.json", "DELETE /entries/5.json"}, seen)
}

func TestUpdateWithoutIDFails(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ok":true}`)
	})
	_, err := c.UpdateEntry(context.Background(), 5, model.EntryPayload{})
	require.EqualError(t, err, "Update failed: unexpected response from server.")
}

func TestReferenceData(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/projects.json":
			_, _ = io.WriteString(w, `[{"id":1,"name":"Apollo","client_id":3}]`)
		case "/tasks.json":
			_, _ = io.WriteString(w, `[{"id":7,"name":"Dev","project_id":1}]`)
		case "/clients.json":
			_, _ = io.WriteString(w, `[{"id":3,"name":"Acme"}]`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	projects, err := c.Projects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, int64(3), *projects[0].ClientID)

	tasks, err := c.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, int64(1), *tasks[0].ProjectID)

	clients, err := c.Clients(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Client{{ID: 3, Name: "Acme"}}, clients)
}
