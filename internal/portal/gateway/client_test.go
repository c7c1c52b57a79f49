package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgboard/portal-backend/internal/apperr"
	"github.com/orgboard/portal-backend/internal/portal/domain"
)

func TestClient_ListProjects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/projects" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"projects":[{"id":"p1","name":"Portal","owner_id":"u1","member_count":2}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, Options{})
	projects, err := client.ListProjects(context.Background())
	require.NoError(t, err)

	require.Len(t, projects, 1)
	assert.Equal(t, "p1", projects[0].ID)
	assert.Equal(t, 2, projects[0].MemberCount)
}

func TestClient_AddMember(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/members" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}

		var body struct {
			ProjectID string `json:"project_id"`
			UserID    string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.ProjectID != "p1" || body.UserID != "u3" {
			t.Errorf("unexpected body: %+v", body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true,"membership":{"id":"m3","project_id":"p1","user_id":"u3","user":{"id":"u3","name":"Ana"}}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, Options{})
	m, err := client.AddMember(context.Background(), "p1", "u3")
	require.NoError(t, err)

	assert.Equal(t, "m3", m.ID)
	assert.Equal(t, "Ana", m.User.Name)
}

func TestClient_AddMember_Conflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"ok":false,"error":"user is already a member"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, Options{})
	_, err := client.AddMember(context.Background(), "p1", "u2")
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestClient_StatusClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   apperr.Kind
	}{
		{"not found", http.StatusNotFound, apperr.KindNotFound},
		{"conflict", http.StatusConflict, apperr.KindConflict},
		{"bad request", http.StatusBadRequest, apperr.KindValidation},
		{"unprocessable", http.StatusUnprocessableEntity, apperr.KindValidation},
		{"server error", http.StatusInternalServerError, apperr.KindUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			client := NewClient(server.URL, Options{})
			_, err := client.GetProject(context.Background(), "p1")
			require.Error(t, err)
			assert.Equal(t, tc.want, apperr.KindOf(err))
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", Options{})

	_, err := client.ListProjects(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.IsNetwork(err))
}

func TestClient_UpdateProject_SendsFullObject(t *testing.T) {
	var got domain.ProjectFields
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/v1/projects/p1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"ok":true,"project":{"id":"p1","name":"Portal v2","owner_id":"u1"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, Options{})
	_, err := client.UpdateProject(context.Background(), "p1", domain.ProjectFields{
		Name: "Portal v2", Description: "desc", ImageURL: "img", OwnerID: "u1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Portal v2", got.Name)
	assert.Equal(t, "desc", got.Description)
	assert.Equal(t, "u1", got.OwnerID)
}

func TestClient_RemoveMember(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/v1/members/m2" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, Options{})
	require.NoError(t, client.RemoveMember(context.Background(), "m2"))
}
