package dictionary

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/signclient"
)

type fakeClient struct {
	fetches atomic.Int32
	entries []signclient.DictionaryEntry
	err     error
	delay   time.Duration
	added   []string
}

func (f *fakeClient) Dictionary(ctx context.Context) ([]signclient.DictionaryEntry, error) {
	f.fetches.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return append([]signclient.DictionaryEntry(nil), f.entries...), nil
}

func (f *fakeClient) AddSign(ctx context.Context, name, imagePath string) (*signclient.StatusResult, error) {
	f.added = append(f.added, name)
	f.entries = append(f.entries, signclient.DictionaryEntry{Name: name, ImagePath: imagePath})
	return &signclient.StatusResult{Status: "success", Message: "Sign '" + name + "' added successfully"}, nil
}

func newTestCatalog(t *testing.T, client *fakeClient, ttl time.Duration) *Catalog {
	t.Helper()
	c, err := NewCatalog(Config{TTL: ttl}, client)
	if err != nil {
		t.Fatalf("NewCatalog() failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleEntries() []signclient.DictionaryEntry {
	return []signclient.DictionaryEntry{
		{Name: "Hello", ImagePath: "/signs/hello.png"},
		{Name: "Thank You", ImagePath: "/signs/thank_you.png"},
		{Name: "Straße", ImagePath: "/signs/strasse.png"},
	}
}

func TestEntries_Cached(t *testing.T) {
	client := &fakeClient{entries: sampleEntries()}
	c := newTestCatalog(t, client, time.Minute)

	for i := 0; i < 3; i++ {
		entries, err := c.Entries(context.Background())
		if err != nil {
			t.Fatalf("Entries() failed: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("len(Entries()) = %d, want 3", len(entries))
		}
	}

	if got := client.fetches.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
}

func TestEntries_ConcurrentMissesShareFetch(t *testing.T) {
	client := &fakeClient{entries: sampleEntries(), delay: 50 * time.Millisecond}
	c := newTestCatalog(t, client, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Entries(context.Background()); err != nil {
				t.Errorf("Entries() failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := client.fetches.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
}

func TestEntries_FetchError(t *testing.T) {
	client := &fakeClient{err: errors.New("service down")}
	c := newTestCatalog(t, client, time.Minute)

	if _, err := c.Entries(context.Background()); err == nil {
		t.Fatal("Entries() expected error")
	}

	client.err = nil
	client.entries = sampleEntries()
	if _, err := c.Entries(context.Background()); err != nil {
		t.Fatalf("Entries() after recovery failed: %v", err)
	}
	if got := client.fetches.Load(); got != 2 {
		t.Errorf("fetches = %d, want 2 (errors are not cached)", got)
	}
}

func TestFilter(t *testing.T) {
	c := newTestCatalog(t, &fakeClient{entries: sampleEntries()}, time.Minute)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Hello", "Thank You", "Straße"}},
		{"  ", []string{"Hello", "Thank You", "Straße"}},
		{"hel", []string{"Hello"}},
		{"THANK", []string{"Thank You"}},
		{"o", []string{"Hello", "Thank You"}},
		{"STRAẞE", []string{"Straße"}},
		{"zebra", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := c.Filter(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Filter() failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Filter(%q) = %v, want %v", tt.query, got, tt.want)
			}
			for i := range got {
				if got[i].Name != tt.want[i] {
					t.Errorf("Filter(%q)[%d] = %q, want %q", tt.query, i, got[i].Name, tt.want[i])
				}
			}
		})
	}
}

func TestAddSign_InvalidatesCache(t *testing.T) {
	client := &fakeClient{entries: sampleEntries()}
	c := newTestCatalog(t, client, time.Minute)

	if _, err := c.Entries(context.Background()); err != nil {
		t.Fatalf("Entries() failed: %v", err)
	}

	msg, err := c.AddSign(context.Background(), " Please ", "/signs/please.png")
	if err != nil {
		t.Fatalf("AddSign() failed: %v", err)
	}
	if msg != "Sign 'Please' added successfully" {
		t.Errorf("message = %q", msg)
	}

	entries, err := c.Entries(context.Background())
	if err != nil {
		t.Fatalf("Entries() failed: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("len(Entries()) = %d, want 4 after add", len(entries))
	}
	if got := client.fetches.Load(); got != 2 {
		t.Errorf("fetches = %d, want 2", got)
	}

	if _, err := c.AddSign(context.Background(), "", "/x.png"); !errors.Is(err, ErrInvalidSign) {
		t.Errorf("AddSign(empty name) = %v, want ErrInvalidSign", err)
	}
}

func TestEntries_Expire(t *testing.T) {
	client := &fakeClient{entries: sampleEntries()}
	c := newTestCatalog(t, client, time.Second)

	c.Entries(context.Background())
	time.Sleep(1100 * time.Millisecond)
	c.Entries(context.Background())

	if got := client.fetches.Load(); got != 2 {
		t.Errorf("fetches = %d, want 2 after ttl", got)
	}
}
