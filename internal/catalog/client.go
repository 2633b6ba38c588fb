// Package catalog looks up track metadata and cover art from the music
// player's public song-detail API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrLookupFailed marks any failure to resolve a track id to metadata.
var ErrLookupFailed = errors.New("catalog lookup failed")

const successCode = 200

// Artist is a single credited performer.
type Artist struct {
	Name string `json:"name"`
}

// Album carries the album title and optional cover URL.
type Album struct {
	Name   string `json:"name"`
	PicURL string `json:"picUrl"`
}

// Song models one entry of the song-detail payload.
type Song struct {
	Name    string   `json:"name"`
	Artists []Artist `json:"artists"`
	Album   Album    `json:"album"`
}

// Response is the song-detail envelope. Code mirrors the HTTP status on success.
type Response struct {
	Code  int    `json:"code"`
	Songs []Song `json:"songs"`
}

// Track is the metadata used to tag and rename a converted file.
type Track struct {
	ID       string
	Title    string
	Artists  []string
	Album    string
	CoverURL string
}

// JoinedArtists renders the artist list the way output files are named.
func (t Track) JoinedArtists() string {
	return strings.Join(t.Artists, " & ")
}

// Lookup is the subset of the client the enricher depends on.
type Lookup interface {
	SongDetail(ctx context.Context, id string) (*Track, error)
	FetchCover(ctx context.Context, coverURL string) ([]byte, error)
}

// Client talks to the catalog HTTP API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

var _ Lookup = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(agent)
	}
}

// New creates a catalog client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("catalog base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SongDetail resolves a numeric track id. Every failure wraps ErrLookupFailed.
func (c *Client) SongDetail(ctx context.Context, id string) (*Track, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty track id", ErrLookupFailed)
	}
	endpoint, err := url.Parse(c.baseURL + "/api/song/detail/")
	if err != nil {
		return nil, fmt.Errorf("%w: parse url: %w", ErrLookupFailed, err)
	}
	params := url.Values{}
	params.Set("id", id)
	params.Set("ids", "["+id+"]")
	endpoint.RawQuery = params.Encode()

	resp, latency, err := c.get(ctx, endpoint.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: song detail returned %d (latency=%v)", ErrLookupFailed, resp.StatusCode, latency)
	}

	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrLookupFailed, err)
	}
	if payload.Code != successCode {
		return nil, fmt.Errorf("%w: payload code %d", ErrLookupFailed, payload.Code)
	}
	if len(payload.Songs) == 0 {
		return nil, fmt.Errorf("%w: no songs for id %s", ErrLookupFailed, id)
	}

	song := payload.Songs[0]
	track := &Track{
		ID:       id,
		Title:    strings.TrimSpace(song.Name),
		Album:    strings.TrimSpace(song.Album.Name),
		CoverURL: strings.TrimSpace(song.Album.PicURL),
	}
	for _, artist := range song.Artists {
		if name := strings.TrimSpace(artist.Name); name != "" {
			track.Artists = append(track.Artists, name)
		}
	}
	return track, nil
}

// FetchCover downloads the cover image. Only a 200 response is accepted.
func (c *Client) FetchCover(ctx context.Context, coverURL string) ([]byte, error) {
	coverURL = strings.TrimSpace(coverURL)
	if coverURL == "" {
		return nil, errors.New("cover url is empty")
	}
	resp, latency, err := c.get(ctx, coverURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cover fetch returned %d (latency=%v)", resp.StatusCode, latency)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read cover: %w", err)
	}
	return data, nil
}

func (c *Client) get(ctx context.Context, target string) (*http.Response, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return nil, latency, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	return resp, latency, nil
}
