package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func freshdeskTestClient(server *httptest.Server) *FreshdeskClient {
	return &FreshdeskClient{
		baseURL: server.URL + "/api/v2",
		apiKey:  "test-key",
		client:  server.Client(),
	}
}

func ticketsPage(start, count int) []RawTicket {
	tickets := make([]RawTicket, 0, count)
	for i := 0; i < count; i++ {
		tickets = append(tickets, RawTicket{
			ID:        int64(start + i),
			Subject:   fmt.Sprintf("Ticket %d", start+i),
			UpdatedAt: "2026-02-10T10:00:00Z",
		})
	}
	return tickets
}

func TestFetchTickets_SinglePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "test-key" || pass != "X" {
			t.Errorf("unexpected auth: %s/%s", user, pass)
		}
		if !strings.Contains(r.URL.RawQuery, "include=description") {
			t.Errorf("missing include=description: %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(ticketsPage(1, 3))
	}))
	defer server.Close()

	client := freshdeskTestClient(server)
	tickets, err := client.FetchTickets(time.Now().AddDate(0, 0, -7), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tickets) != 3 {
		t.Fatalf("expected 3 tickets, got %d", len(tickets))
	}
}

func TestFetchTickets_Paginates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		switch page {
		case "1":
			json.NewEncoder(w).Encode(ticketsPage(1, freshdeskPerPage))
		case "2":
			json.NewEncoder(w).Encode(ticketsPage(freshdeskPerPage+1, 10))
		default:
			t.Errorf("unexpected page %s", page)
			json.NewEncoder(w).Encode([]RawTicket{})
		}
	}))
	defer server.Close()

	client := freshdeskTestClient(server)
	tickets, err := client.FetchTickets(time.Now().AddDate(0, 0, -7), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tickets) != freshdeskPerPage+10 {
		t.Fatalf("expected %d tickets, got %d", freshdeskPerPage+10, len(tickets))
	}
}

func TestFetchTickets_StopsAtPageCap(t *testing.T) {
	pages := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		json.NewEncoder(w).Encode(ticketsPage(1, freshdeskPerPage))
	}))
	defer server.Close()

	client := freshdeskTestClient(server)
	tickets, err := client.FetchTickets(time.Now(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pages != 2 {
		t.Fatalf("expected 2 page fetches, got %d", pages)
	}
	if len(tickets) != 2*freshdeskPerPage {
		t.Fatalf("expected %d tickets, got %d", 2*freshdeskPerPage, len(tickets))
	}
}

func TestFetchTickets_RetriesOnRateLimit(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(ticketsPage(1, 2))
	}))
	defer server.Close()

	client := freshdeskTestClient(server)
	tickets, err := client.FetchTickets(time.Now(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected retry after 429, got %d calls", calls)
	}
	if len(tickets) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(tickets))
	}
}

func TestFetchTickets_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "server error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := freshdeskTestClient(server)
	if _, err := client.FetchTickets(time.Now(), 1); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		header string
		want   int
	}{
		{"5", 5},
		{"", 30},
		{"garbage", 30},
		{"0", 30},
		{"9999", 120},
	}
	for _, tc := range tests {
		if got := retryAfterSeconds(tc.header); got != tc.want {
			t.Fatalf("retryAfterSeconds(%q) = %d, want %d", tc.header, got, tc.want)
		}
	}
}

func TestNewFreshdeskClient_NormalizesDomain(t *testing.T) {
	for _, domain := range []string{"example.freshdesk.com", "https://example.freshdesk.com", "http://example.freshdesk.com/"} {
		client := NewFreshdeskClient(domain, "key")
		if client.baseURL != "https://example.freshdesk.com/api/v2" {
			t.Fatalf("domain %q produced base URL %q", domain, client.baseURL)
		}
	}
}
