// Package lastfm reads listening reports from the Last.fm API.
package lastfm

import (
	"net/url"
	"strconv"

	"github.com/lowmess/vitals/upstream"
)

const DefaultBaseURL = "http://ws.audioscrobbler.com/2.0/"

// Reports cover the trailing month, matching the facade's 30-day lens
// on the other upstreams.
const period = "1month"

type Client struct {
	HTTP    *upstream.Client
	BaseURL string
}

func NewClient(http *upstream.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{HTTP: http, BaseURL: baseURL}
}

// Album is one entry of a top-albums report.
type Album struct {
	Name   string
	Artist string
}

type topTracksResponse struct {
	TopTracks *struct {
		Attr struct {
			Total string `json:"total"`
		} `json:"@attr"`
	} `json:"toptracks"`
}

// TopTracksTotal returns the number of distinct tracks the user
// played over the trailing month.
func (c *Client) TopTracksTotal(key, user string) (int, error) {
	var body topTracksResponse
	err := c.HTTP.GetJSON(c.url("user.gettoptracks", key, user), nil, &body)
	if err != nil {
		return 0, err
	}
	if body.TopTracks == nil {
		return 0, &upstream.UnexpectedShapeError{
			Upstream: "lastfm",
			Expected: "toptracks",
		}
	}
	total, err := strconv.Atoi(body.TopTracks.Attr.Total)
	if err != nil {
		return 0, &upstream.UnexpectedShapeError{
			Upstream: "lastfm",
			Expected: "numeric toptracks total",
		}
	}
	return total, nil
}

type topAlbumsResponse struct {
	TopAlbums *struct {
		Album []struct {
			Name   string `json:"name"`
			Artist struct {
				Name string `json:"name"`
			} `json:"artist"`
		} `json:"album"`
	} `json:"topalbums"`
}

// TopAlbum returns the user's most played album over the trailing
// month, or nil when the report is empty.
func (c *Client) TopAlbum(key, user string) (*Album, error) {
	var body topAlbumsResponse
	err := c.HTTP.GetJSON(c.url("user.gettopalbums", key, user), nil, &body)
	if err != nil {
		return nil, err
	}
	if body.TopAlbums == nil {
		return nil, &upstream.UnexpectedShapeError{
			Upstream: "lastfm",
			Expected: "topalbums",
		}
	}
	if len(body.TopAlbums.Album) < 1 {
		return nil, nil
	}
	first := body.TopAlbums.Album[0]
	return &Album{Name: first.Name, Artist: first.Artist.Name}, nil
}

func (c *Client) url(method, key, user string) string {
	q := url.Values{}
	q.Set("method", method)
	q.Set("user", user)
	q.Set("api_key", key)
	q.Set("limit", "1")
	q.Set("period", period)
	q.Set("format", "json")
	return c.BaseURL + "?" + q.Encode()
}
