package telegram_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meikuraledutech/colosseum"
	"github.com/meikuraledutech/colosseum/telegram"
)

func TestDeliver(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottoken-a/sendMessage" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": 42},
		})
	}))
	defer server.Close()

	c := telegram.New(map[string]string{"a": "token-a"}).WithBaseURL(server.URL)

	id, err := c.Deliver(context.Background(), -100123, 7, "a", "hello chat")
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if id != "42" {
		t.Fatalf("expected delivery id 42, got %q", id)
	}

	if captured["chat_id"] != float64(-100123) {
		t.Fatalf("chat_id not sent: %v", captured["chat_id"])
	}
	if captured["message_thread_id"] != float64(7) {
		t.Fatalf("thread id not sent: %v", captured["message_thread_id"])
	}
	if captured["text"] != "hello chat" {
		t.Fatalf("text not sent: %v", captured["text"])
	}
}

func TestDeliverOmitsZeroThread(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": 1},
		})
	}))
	defer server.Close()

	c := telegram.New(map[string]string{"a": "token-a"}).WithBaseURL(server.URL)

	if _, err := c.Deliver(context.Background(), 5, 0, "a", "x"); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if _, present := captured["message_thread_id"]; present {
		t.Fatalf("zero thread id must be omitted from the payload")
	}
}

func TestDeliverAPIRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"description": "Forbidden: bot was kicked",
		})
	}))
	defer server.Close()

	c := telegram.New(map[string]string{"a": "token-a"}).WithBaseURL(server.URL)

	if _, err := c.Deliver(context.Background(), 5, 0, "a", "x"); !errors.Is(err, colosseum.ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
}

func TestDeliverUnknownSpeaker(t *testing.T) {
	c := telegram.New(map[string]string{"a": "token-a"})

	if _, err := c.Deliver(context.Background(), 5, 0, "ghost", "x"); !errors.Is(err, colosseum.ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed for missing token, got %v", err)
	}
}
