// Package github counts recent commits through the GitHub GraphQL API.
package github

import (
	"context"
	"time"

	"github.com/lowmess/vitals/upstream"

	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

type Client struct {
	// Endpoint overrides the public GraphQL endpoint. Tests point it
	// at a stub server.
	Endpoint string
	Timeout  time.Duration
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = upstream.DefaultFetchTimeout
	}
	return &Client{Endpoint: endpoint, Timeout: timeout}
}

type historyConnection struct {
	Edges []struct {
		Node struct {
			Author struct {
				Name githubv4.String
			}
		}
	}
}

// repositoryNode's Ref is a pointer: repositories without a master
// ref come back null and contribute nothing to the count.
type repositoryNode struct {
	Ref *struct {
		Target struct {
			Commit struct {
				History historyConnection `graphql:"history(since: $since, first: 100)"`
			} `graphql:"... on Commit"`
		}
	} `graphql:"ref(qualifiedName: \"master\")"`
}

type recentCommitsQuery struct {
	Viewer struct {
		Repositories struct {
			Nodes []repositoryNode
		} `graphql:"repositories(first: 100)"`
		RepositoriesContributedTo struct {
			Nodes []repositoryNode
		} `graphql:"repositoriesContributedTo(first: 100)"`
	}
}

// CountCommits returns how many commits authored by author (exact,
// case-sensitive name match) landed on the master refs of the first
// 100 repositories the token's viewer owns and the first 100 they
// contributed to, since the given instant. Only the first 100 commits
// per repository are considered.
func (c *Client) CountCommits(
	ctx context.Context, token, author string, since time.Time,
) (int, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(ctx, src)
	httpClient.Timeout = c.Timeout

	var gh *githubv4.Client
	if c.Endpoint == "" {
		gh = githubv4.NewClient(httpClient)
	} else {
		gh = githubv4.NewEnterpriseClient(c.Endpoint, httpClient)
	}

	var q recentCommitsQuery
	err := gh.Query(ctx, &q, map[string]interface{}{
		"since": githubv4.GitTimestamp{Time: since},
	})
	if err != nil {
		// Both network failures and a viewer-less response (bad
		// token) surface here; the resolver nulls either way.
		return 0, &upstream.TransportError{
			URL: "api.github.com/graphql",
			Err: err,
		}
	}

	count := countAuthored(q.Viewer.Repositories.Nodes, author)
	count += countAuthored(q.Viewer.RepositoriesContributedTo.Nodes, author)
	return count, nil
}

func countAuthored(nodes []repositoryNode, author string) int {
	count := 0
	for _, node := range nodes {
		if node.Ref == nil {
			continue
		}
		for _, edge := range node.Ref.Target.Commit.History.Edges {
			if string(edge.Node.Author.Name) == author {
				count++
			}
		}
	}
	return count
}
