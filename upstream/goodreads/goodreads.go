// Package goodreads reads shelf review lists from the Goodreads API.
//
// Goodreads responds with XML; only the fields the facade projects
// are declared on the response types.
package goodreads

import (
	"encoding/xml"
	"net/url"

	"github.com/lowmess/vitals/upstream"
)

const DefaultBaseURL = "https://www.goodreads.com"

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

// Book is the first book of a shelf's first review.
type Book struct {
	Title  string
	Author string
}

type reviewList struct {
	XMLName xml.Name `xml:"GoodreadsResponse"`
	Reviews struct {
		Review []struct {
			Book struct {
				Title   string `xml:"title"`
				Authors struct {
					Author []struct {
						Name string `xml:"name"`
					} `xml:"author"`
				} `xml:"authors"`
			} `xml:"book"`
		} `xml:"review"`
	} `xml:"reviews"`
}

// CurrentBook returns the first book on the given shelf, or nil when
// the shelf is empty.
func (c *Client) CurrentBook(key, userID, shelf string) (*Book, error) {
	q := url.Values{}
	q.Set("v", "2")
	q.Set("id", userID)
	q.Set("shelf", shelf)
	q.Set("key", key)

	body, err := c.HTTP.GetText(c.BaseURL+"/review/list?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var list reviewList
	if err := xml.Unmarshal(body, &list); err != nil {
		// Covers both malformed XML and a response whose root is
		// not a GoodreadsResponse element.
		return nil, &upstream.UnexpectedShapeError{
			Upstream: "goodreads",
			Expected: "GoodreadsResponse",
		}
	}
	if len(list.Reviews.Review) < 1 {
		return nil, nil
	}

	book := list.Reviews.Review[0].Book
	b := &Book{Title: book.Title}
	if len(book.Authors.Author) > 0 {
		b.Author = book.Authors.Author[0].Name
	}
	return b, nil
}
