// ABOUTME: Tests for the backend API client against an httptest server.
// ABOUTME: Covers auth header attachment, error mapping, and the 401 hook.

package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticToken is a TokenSource returning a fixed token.
type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]Agent{})
	}))
	defer srv.Close()

	client := New(srv.URL, staticToken("tok-123"), nil)
	_, err := client.ListAgents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]Agent{})
	}))
	defer srv.Close()

	client := New(srv.URL, staticToken(""), nil)
	_, err := client.ListAgents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClient_UnauthorizedFiresHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Could not validate credentials"})
	}))
	defer srv.Close()

	client := New(srv.URL, staticToken("expired"), nil)
	hookFired := 0
	client.OnUnauthorized = func() { hookFired++ }

	_, err := client.ListAgents(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "Could not validate credentials")
	assert.Equal(t, 1, hookFired)
}

func TestClient_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Agent not found"})
	}))
	defer srv.Close()

	client := New(srv.URL, staticToken("tok"), nil)
	_, err := client.GetMessages(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_ServerErrorSurfacesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"detail": "index unavailable"})
	}))
	defer srv.Close()

	client := New(srv.URL, staticToken("tok"), nil)
	_, err := client.SendMessage(context.Background(), 1, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index unavailable")
}

func TestClient_ServerErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(srv.URL, staticToken("tok"), nil)
	_, err := client.ListAgents(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestListAgents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/agents", r.URL.Path)
		json.NewEncoder(w).Encode([]Agent{
			{ID: 1, Name: "Support", Prompt: "Be helpful", Files: []FileInfo{{ID: 7, Name: "manual.pdf"}}},
			{ID: 2, Name: "Legal", Prompt: "Cite sources"},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, staticToken("tok"), nil)
	agents, err := client.ListAgents(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "Support", agents[0].Name)
	assert.Equal(t, "manual.pdf", agents[0].Files[0].Name)
}

func TestCreateAgent_MultipartForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Research", r.FormValue("name"))
		assert.Equal(t, "Answer from the papers", r.FormValue("prompt"))

		file, header, err := r.FormFile("files")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "paper.pdf", header.Filename)
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-1.4"), content)

		json.NewEncoder(w).Encode(Agent{ID: 3, Name: "Research", Prompt: "Answer from the papers"})
	}))
	defer srv.Close()

	client := New(srv.URL, staticToken("tok"), nil)
	agent, err := client.CreateAgent(context.Background(), "Research", "Answer from the papers", []FileUpload{
		{Name: "paper.pdf", Content: []byte("%PDF-1.4")},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, agent.ID)
}

func TestUpdateAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/agents/3", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		json.NewEncoder(w).Encode(Agent{ID: 3, Name: "Renamed", Prompt: "New prompt"})
	}))
	defer srv.Close()

	client := New(srv.URL, staticToken("tok"), nil)
	agent, err := client.UpdateAgent(context.Background(), 3, "Renamed", "New prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", agent.Name)
}

func TestSendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/agents/5/messages", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "what is chapter two about?", body["text"])
		json.NewEncoder(w).Encode(Message{ID: 9, Sender: RoleBot, Text: "Chapter two covers indexing."})
	}))
	defer srv.Close()

	client := New(srv.URL, staticToken("tok"), nil)
	reply, err := client.SendMessage(context.Background(), 5, "what is chapter two about?")
	require.NoError(t, err)
	assert.Equal(t, "Chapter two covers indexing.", reply)
}

func TestGetMessages_OrderPreserved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]Message{
			{ID: 1, Sender: RoleUser, Text: "hello"},
			{ID: 2, Sender: RoleBot, Text: "hi there"},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, staticToken("tok"), nil)
	messages, err := client.GetMessages(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, RoleUser, messages[0].Sender)
	assert.Equal(t, RoleBot, messages[1].Sender)
}

func TestLogin_TokenFieldVariants(t *testing.T) {
	tests := []struct {
		name string
		body map[string]string
	}{
		{"token field", map[string]string{"token": "tok-a"}},
		{"access_token field", map[string]string{"access_token": "tok-a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/login", r.URL.Path)
				var creds map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
				assert.Equal(t, "a@b.c", creds["email"])
				json.NewEncoder(w).Encode(tt.body)
			}))
			defer srv.Close()

			client := New(srv.URL, staticToken(""), nil)
			token, err := client.Login(context.Background(), "a@b.c", "pw")
			require.NoError(t, err)
			assert.Equal(t, "tok-a", token)
		})
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Incorrect username or password"})
	}))
	defer srv.Close()

	client := New(srv.URL, staticToken(""), nil)
	_, err := client.Login(context.Background(), "a@b.c", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect username or password")
}

func TestFetchFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/files/7", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 content"))
	}))
	defer srv.Close()

	client := New(srv.URL, staticToken("tok"), nil)
	body, err := client.FetchFile(context.Background(), 7)
	require.NoError(t, err)
	defer body.Close()

	content, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 content", string(content))
}

func TestDeleteAgent(t *testing.T) {
	deleted := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/agents/4", r.URL.Path)
		deleted = true
		json.NewEncoder(w).Encode(map[string]string{"detail": "Agent deleted"})
	}))
	defer srv.Close()

	client := New(srv.URL, staticToken("tok"), nil)
	require.NoError(t, client.DeleteAgent(context.Background(), 4))
	assert.True(t, deleted)
}
