package push

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func TestIsValidToken(t *testing.T) {
	c := NewClient("", 0)

	cases := []struct {
		token string
		valid bool
	}{
		{"ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]", true},
		{"ExpoPushToken[abc123]", true},
		{"ExponentPushToken[]", false},
		{"FCMToken:abc", false},
		{"", false},
		{"ExponentPushToken[abc", false},
		{"random string", false},
	}
	for _, tc := range cases {
		if got := c.IsValidToken(tc.token); got != tc.valid {
			t.Errorf("IsValidToken(%q) = %v, want %v", tc.token, got, tc.valid)
		}
	}
}

func TestDispatchFiltersInvalidAndChunks(t *testing.T) {
	var mu sync.Mutex
	var batches [][]Notification

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch []Notification
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			t.Errorf("decode batch: %v", err)
		}
		mu.Lock()
		batches = append(batches, batch)
		mu.Unlock()
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2)

	notifications := []Notification{
		{To: "ExponentPushToken[a]", Title: "T", Body: "1"},
		{To: "not-a-token", Title: "T", Body: "dropped"},
		{To: "ExponentPushToken[b]", Title: "T", Body: "2"},
		{To: "ExponentPushToken[c]", Title: "T", Body: "3"},
		{To: "ExponentPushToken[d]", Title: "T", Body: "4"},
		{To: "ExponentPushToken[e]", Title: "T", Body: "5"},
	}
	c.Dispatch(notifications)

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 3 {
		t.Fatalf("expected 3 chunks of size <= 2, got %d", len(batches))
	}
	total := 0
	for _, batch := range batches {
		if len(batch) > 2 {
			t.Fatalf("chunk larger than limit: %d", len(batch))
		}
		for _, n := range batch {
			if n.Body == "dropped" {
				t.Fatalf("invalid token made it into a batch")
			}
		}
		total += len(batch)
	}
	if total != 5 {
		t.Fatalf("expected 5 submitted notifications, got %d", total)
	}
}

func TestDispatchContinuesPastFailedChunk(t *testing.T) {
	var mu sync.Mutex
	requests := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		n := requests
		mu.Unlock()
		if n == 1 {
			http.Error(w, "gateway unavailable", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 1)
	c.Dispatch([]Notification{
		{To: "ExponentPushToken[a]", Title: "T", Body: "1"},
		{To: "ExponentPushToken[b]", Title: "T", Body: "2"},
		{To: "ExponentPushToken[c]", Title: "T", Body: "3"},
	})

	mu.Lock()
	defer mu.Unlock()
	if requests != 3 {
		t.Fatalf("expected all 3 chunks submitted despite failure, got %d", requests)
	}
}

func TestDispatchEmptyAfterFiltering(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected when every token is invalid")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 10)
	c.Dispatch([]Notification{{To: "bogus", Title: "T", Body: "x"}})
}
