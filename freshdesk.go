package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const freshdeskPerPage = 100

// FreshdeskClient fetches tickets from the Freshdesk REST API.
type FreshdeskClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewFreshdeskClient(domain, apiKey string) *FreshdeskClient {
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimSuffix(domain, "/")
	return &FreshdeskClient{
		baseURL: fmt.Sprintf("https://%s/api/v2", domain),
		apiKey:  apiKey,
		client:  externalHTTPClient,
	}
}

func (f *FreshdeskClient) get(path string) (*http.Response, error) {
	req, err := http.NewRequest("GET", f.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	// Freshdesk basic auth: API key as username, "X" as password.
	req.SetBasicAuth(f.apiKey, "X")
	req.Header.Set("Content-Type", "application/json")
	return f.client.Do(req)
}

// TestConnection verifies the domain and API key with a minimal request.
func (f *FreshdeskClient) TestConnection() error {
	resp, err := f.get("/tickets?per_page=1")
	if err != nil {
		return fmt.Errorf("connecting to Freshdesk: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("Freshdesk auth failed: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Freshdesk connection check failed: status %d", resp.StatusCode)
	}
	return nil
}

// FetchTickets retrieves tickets updated since the given time, newest first,
// walking pages until a short page, the page cap, or the cutoff. Rate limits
// (429) are honored via Retry-After, bounded to one retry per page.
func (f *FreshdeskClient) FetchTickets(since time.Time, maxPages int) ([]RawTicket, error) {
	if maxPages < 1 {
		maxPages = 1
	}

	var all []RawTicket
	for page := 1; page <= maxPages; page++ {
		path := fmt.Sprintf("/tickets?include=description&per_page=%d&page=%d&order_by=updated_at&order_type=desc&updated_since=%s",
			freshdeskPerPage, page, since.UTC().Format(time.RFC3339))

		tickets, err := f.fetchPage(path, true)
		if err != nil {
			return nil, fmt.Errorf("fetching page %d: %w", page, err)
		}

		all = append(all, tickets...)
		log.Printf("freshdesk fetched page=%d tickets=%d total=%d", page, len(tickets), len(all))

		if len(tickets) < freshdeskPerPage {
			break
		}
		if page == maxPages {
			log.Printf("freshdesk page cap reached pages=%d, older tickets not fetched", maxPages)
		}
	}
	return all, nil
}

func (f *FreshdeskClient) fetchPage(path string, allowRetry bool) ([]RawTicket, error) {
	resp, err := f.get(path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		if !allowRetry {
			return nil, fmt.Errorf("rate limited twice in a row")
		}
		wait := retryAfterSeconds(resp.Header.Get("Retry-After"))
		log.Printf("freshdesk rate limited, waiting %ds", wait)
		io.Copy(io.Discard, resp.Body)
		time.Sleep(time.Duration(wait) * time.Second)
		return f.fetchPage(path, false)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tickets []RawTicket
	if err := json.NewDecoder(resp.Body).Decode(&tickets); err != nil {
		return nil, fmt.Errorf("decoding tickets: %w", err)
	}
	return tickets, nil
}

func retryAfterSeconds(header string) int {
	const defaultWait, maxWait = 30, 120
	n, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || n < 1 {
		return defaultWait
	}
	if n > maxWait {
		return maxWait
	}
	return n
}
