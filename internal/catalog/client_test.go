package catalog_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ucmusic/internal/catalog"
)

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := catalog.New("  "); err == nil {
		t.Fatal("expected error when base url missing")
	}
}

func TestSongDetailSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/song/detail/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("id"); got != "123456" {
			t.Errorf("id = %q", got)
		}
		if got := r.URL.Query().Get("ids"); got != "[123456]" {
			t.Errorf("ids = %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "ucmusic-test" {
			t.Errorf("User-Agent = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":200,"songs":[{"name":"Song","artists":[{"name":"A"},{"name":"B"}],"album":{"name":"Record","picUrl":"http://img/cover.jpg"}}]}`))
	}))
	t.Cleanup(server.Close)

	client, err := catalog.New(server.URL+"/", catalog.WithUserAgent("ucmusic-test"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	track, err := client.SongDetail(context.Background(), "123456")
	if err != nil {
		t.Fatalf("SongDetail returned error: %v", err)
	}
	if track.Title != "Song" || track.Album != "Record" || track.CoverURL != "http://img/cover.jpg" {
		t.Fatalf("unexpected track %#v", track)
	}
	if got := track.JoinedArtists(); got != "A & B" {
		t.Fatalf("JoinedArtists = %q, want %q", got, "A & B")
	}
}

func TestSongDetailFailures(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"http 404":       {status: http.StatusNotFound, body: `{"code":404}`},
		"payload code":   {status: http.StatusOK, body: `{"code":400,"songs":[]}`},
		"empty songs":    {status: http.StatusOK, body: `{"code":200,"songs":[]}`},
		"malformed json": {status: http.StatusOK, body: `{"code":`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			t.Cleanup(server.Close)

			client, err := catalog.New(server.URL)
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			_, err = client.SongDetail(context.Background(), "1")
			if !errors.Is(err, catalog.ErrLookupFailed) {
				t.Fatalf("expected ErrLookupFailed, got %v", err)
			}
		})
	}
}

func TestSongDetailNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := catalog.New(url)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.SongDetail(context.Background(), "1"); !errors.Is(err, catalog.ErrLookupFailed) {
		t.Fatalf("expected ErrLookupFailed, got %v", err)
	}
}

func TestFetchCover(t *testing.T) {
	image := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(image)
	}))
	t.Cleanup(server.Close)

	client, err := catalog.New(server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	got, err := client.FetchCover(context.Background(), server.URL+"/cover.jpg")
	if err != nil {
		t.Fatalf("FetchCover returned error: %v", err)
	}
	if !bytes.Equal(got, image) {
		t.Fatalf("cover bytes mismatch: %v", got)
	}
	if _, err := client.FetchCover(context.Background(), server.URL+"/missing.jpg"); err == nil {
		t.Fatal("expected error for 404 cover")
	}
	if _, err := client.FetchCover(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty cover url")
	}
}
