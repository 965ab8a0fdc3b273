package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zhouzirui/medic/backend/internal/model/chat"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{chat.ErrEmptyMessage, http.StatusBadRequest},
		{chat.ErrSessionNotFound, http.StatusNotFound},
		{chat.ErrBusy, http.StatusConflict},
		{chat.NewError(chat.KindNetwork, "down", nil), http.StatusBadGateway},
		{chat.NewError(chat.KindEmptyResponse, "empty", nil), http.StatusBadGateway},
		{chat.NewError(chat.KindConfiguration, "no key", nil), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.err); got != tc.want {
			t.Fatalf("StatusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestRespondChatErrorHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	err := fmt.Errorf("submit: %w", chat.NewError(chat.KindNetwork, "model call failed", errors.New("secret upstream detail")))

	RespondChatError(rec, err)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "model call failed" || body.Kind != chat.KindNetwork {
		t.Fatalf("unexpected body: %+v", body)
	}
}
