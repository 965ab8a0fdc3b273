package topic

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/medic/backend/internal/model/topic"
)

func setupRouter() *chi.Mux {
	r := chi.NewRouter()
	New(topic.NewMemoryStore(topic.Seed())).RegisterRoutes(r)
	return r
}

func TestListTopics(t *testing.T) {
	r := setupRouter()
	req := httptest.NewRequest(http.MethodGet, "/topics", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var items []topic.Topic
	if err := json.Unmarshal(resp.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != len(topic.Seed()) {
		t.Fatalf("expected %d topics, got %d", len(topic.Seed()), len(items))
	}
}

func TestGetTopicNotFound(t *testing.T) {
	r := setupRouter()
	req := httptest.NewRequest(http.MethodGet, "/topics/nope", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
