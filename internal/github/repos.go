package github

import (
	"context"
	"net/url"
	"strconv"
)

// Paging defaults.
const (
	DefaultCommitsPerPage = 5
	DefaultListPerPage    = 10
	ContributorsPerPage   = 100
	MaxPerPage            = 100
)

// PageOptions selects one page of a listing. Zero fields take the
// endpoint's defaults.
type PageOptions struct {
	Page    int
	PerPage int
}

func (o PageOptions) normalize(defaultPerPage int) PageOptions {
	if o.Page <= 0 {
		o.Page = 1
	}
	if o.PerPage <= 0 {
		o.PerPage = defaultPerPage
	}
	if o.PerPage > MaxPerPage {
		o.PerPage = MaxPerPage
	}
	return o
}

func (o PageOptions) query() url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(o.Page))
	q.Set("per_page", strconv.Itoa(o.PerPage))
	return q
}

// ListCommits returns one page of the history of branch, newest first.
func (c *Client) ListCommits(ctx context.Context, owner, repo, branch string, opts PageOptions) (*CommitPage, error) {
	opts = opts.normalize(DefaultCommitsPerPage)
	q := opts.query()
	if branch != "" {
		q.Set("sha", branch)
	}

	var raw []struct {
		SHA     string `json:"sha"`
		HTMLURL string `json:"html_url"`
		Commit  struct {
			Message string `json:"message"`
			Author  *struct {
				Name string `json:"name"`
				Date string `json:"date"`
			} `json:"author"`
		} `json:"commit"`
		Author *struct {
			AvatarURL string `json:"avatar_url"`
		} `json:"author"`
	}
	if err := c.get(ctx, "commits", repoPath(owner, repo)+"/commits", q, &raw); err != nil {
		return nil, err
	}

	commits := make([]Commit, 0, len(raw))
	for _, r := range raw {
		cm := Commit{SHA: r.SHA, Message: r.Commit.Message, URL: r.HTMLURL}
		if r.Commit.Author != nil {
			cm.Author = r.Commit.Author.Name
			cm.Date = r.Commit.Author.Date
		}
		if r.Author != nil {
			cm.Avatar = r.Author.AvatarURL
		}
		commits = append(commits, cm)
	}

	return &CommitPage{
		Commits:     commits,
		Page:        opts.Page,
		PerPage:     opts.PerPage,
		HasNextPage: len(raw) == opts.PerPage,
	}, nil
}

// ListContributors returns up to 100 contributors ordered by contribution count.
func (c *Client) ListContributors(ctx context.Context, owner, repo string) ([]Contributor, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(ContributorsPerPage))

	contributors := []Contributor{}
	if err := c.get(ctx, "contributors", repoPath(owner, repo)+"/contributors", q, &contributors); err != nil {
		return nil, err
	}
	return contributors, nil
}

type rawUser struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

func (u *rawUser) user() User {
	if u == nil {
		return User{}
	}
	return User{Login: u.Login, AvatarURL: u.AvatarURL}
}

// ListIssues returns one page of issues in state (all, open or closed).
// The GitHub issues endpoint also returns pull requests.
func (c *Client) ListIssues(ctx context.Context, owner, repo, state string, opts PageOptions) ([]Issue, error) {
	opts = opts.normalize(DefaultListPerPage)
	q := opts.query()
	q.Set("state", NormalizeState(state))

	var raw []struct {
		ID        int64    `json:"id"`
		Number    int      `json:"number"`
		Title     string   `json:"title"`
		State     string   `json:"state"`
		CreatedAt string   `json:"created_at"`
		User      *rawUser `json:"user"`
		Comments  int      `json:"comments"`
		HTMLURL   string   `json:"html_url"`
		Labels    []Label  `json:"labels"`
	}
	if err := c.get(ctx, "issues", repoPath(owner, repo)+"/issues", q, &raw); err != nil {
		return nil, err
	}

	issues := make([]Issue, 0, len(raw))
	for _, r := range raw {
		issues = append(issues, Issue{
			ID:        r.ID,
			Number:    r.Number,
			Title:     r.Title,
			State:     r.State,
			CreatedAt: r.CreatedAt,
			User:      r.User.user(),
			Comments:  r.Comments,
			URL:       r.HTMLURL,
			Labels:    nonNilLabels(r.Labels),
		})
	}
	return issues, nil
}

// ListPullRequests returns one page of pull requests in state.
func (c *Client) ListPullRequests(ctx context.Context, owner, repo, state string, opts PageOptions) ([]PullRequest, error) {
	opts = opts.normalize(DefaultListPerPage)
	q := opts.query()
	q.Set("state", NormalizeState(state))

	var raw []struct {
		ID        int64    `json:"id"`
		Number    int      `json:"number"`
		Title     string   `json:"title"`
		State     string   `json:"state"`
		CreatedAt string   `json:"created_at"`
		User      *rawUser `json:"user"`
		HTMLURL   string   `json:"html_url"`
		MergedAt  *string  `json:"merged_at"`
		Labels    []Label  `json:"labels"`
		Draft     bool     `json:"draft"`
	}
	if err := c.get(ctx, "pulls", repoPath(owner, repo)+"/pulls", q, &raw); err != nil {
		return nil, err
	}

	pulls := make([]PullRequest, 0, len(raw))
	for _, r := range raw {
		pulls = append(pulls, PullRequest{
			ID:        r.ID,
			Number:    r.Number,
			Title:     r.Title,
			State:     r.State,
			CreatedAt: r.CreatedAt,
			User:      r.User.user(),
			URL:       r.HTMLURL,
			Merged:    r.MergedAt != nil,
			Labels:    nonNilLabels(r.Labels),
			Draft:     r.Draft,
		})
	}
	return pulls, nil
}

func nonNilLabels(l []Label) []Label {
	if l == nil {
		return []Label{}
	}
	return l
}
