package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// CatalogTrack describes one song served by a CatalogServer. A nil Cover
// yields an empty picUrl.
type CatalogTrack struct {
	Title   string
	Artists []string
	Album   string
	Cover   []byte
}

// CatalogServer is an httptest song-detail API. Unknown ids return 404.
type CatalogServer struct {
	URL      string
	requests atomic.Int64
}

// Requests returns how many song-detail lookups the server has answered.
func (s *CatalogServer) Requests() int64 {
	return s.requests.Load()
}

// NewCatalogServer serves tracks keyed by id and their covers under /covers/.
func NewCatalogServer(t testing.TB, tracks map[string]CatalogTrack) *CatalogServer {
	t.Helper()

	catalog := &CatalogServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/song/detail/", func(w http.ResponseWriter, r *http.Request) {
		catalog.requests.Add(1)
		id := r.URL.Query().Get("id")
		track, ok := tracks[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		type artist struct {
			Name string `json:"name"`
		}
		song := map[string]any{
			"name":  track.Title,
			"album": map[string]string{"name": track.Album, "picUrl": ""},
		}
		artists := make([]artist, 0, len(track.Artists))
		for _, name := range track.Artists {
			artists = append(artists, artist{Name: name})
		}
		song["artists"] = artists
		if track.Cover != nil {
			song["album"] = map[string]string{"name": track.Album, "picUrl": "http://" + r.Host + "/covers/" + id + ".jpg"}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 200, "songs": []any{song}})
	})
	mux.HandleFunc("/covers/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/covers/"), ".jpg")
		track, ok := tracks[id]
		if !ok || track.Cover == nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(track.Cover)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	catalog.URL = server.URL
	return catalog
}
