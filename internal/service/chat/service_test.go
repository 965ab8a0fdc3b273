package chat_test

import (
	"context"
	"testing"

	"github.com/zhouzirui/medic/backend/internal/config"
	"github.com/zhouzirui/medic/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/medic/backend/internal/service/chat"
)

func TestServiceGetSession(t *testing.T) {
	svc := chatservice.NewService(nil, config.ChatConfig{Greeting: "Hello"}, nil)
	ctx := context.Background()

	conv, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	got, err := svc.GetSession(ctx, conv.Session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}

	if got.Session.ID != conv.Session.ID {
		t.Fatalf("unexpected session ID: got %s want %s", got.Session.ID, conv.Session.ID)
	}
	if got.Store.Len() != 1 {
		t.Fatalf("expected seeded conversation, got %d turns", got.Store.Len())
	}
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc := chatservice.NewService(nil, config.ChatConfig{}, nil)
	ctx := context.Background()

	if _, err := svc.GetSession(ctx, "missing"); chat.KindOf(err) != chat.KindNotFound {
		t.Fatalf("expected not_found error, got %v", err)
	}
}

func TestServiceSessionsAreIsolated(t *testing.T) {
	svc := chatservice.NewService(nil, config.ChatConfig{Greeting: "Hello"}, nil)
	ctx := context.Background()

	a, _ := svc.CreateSession(ctx)
	b, _ := svc.CreateSession(ctx)

	if err := a.Store.Append(chat.UserTurn("only in a")); err != nil {
		t.Fatalf("Append err: %v", err)
	}
	if b.Store.Len() != 1 {
		t.Fatalf("session b should be untouched, got %d turns", b.Store.Len())
	}
}

func TestServiceDeleteSession(t *testing.T) {
	svc := chatservice.NewService(nil, config.ChatConfig{}, nil)
	ctx := context.Background()

	conv, _ := svc.CreateSession(ctx)
	if svc.Count() != 1 {
		t.Fatalf("expected 1 session, got %d", svc.Count())
	}
	if err := svc.DeleteSession(ctx, conv.Session.ID); err != nil {
		t.Fatalf("DeleteSession err: %v", err)
	}
	if _, err := svc.GetSession(ctx, conv.Session.ID); err == nil {
		t.Fatal("expected deleted session to be gone")
	}
	if err := svc.DeleteSession(ctx, conv.Session.ID); err == nil {
		t.Fatal("expected second delete to fail")
	}
}

func TestServiceRetainContext(t *testing.T) {
	if !chatservice.NewService(nil, config.ChatConfig{RetainContext: true}, nil).RetainContext() {
		t.Fatal("expected retention on")
	}
	if chatservice.NewService(nil, config.ChatConfig{}, nil).RetainContext() {
		t.Fatal("expected retention off")
	}
}
