package github

import (
	"strings"
	"time"

	"github.com/Shubhamjha-sj/signal/pkg/queue"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

// Webhook covers the issues, issue_comment and discussion events
// Reference: https://docs.github.com/en/webhooks/webhook-events-and-payloads
type Webhook struct {
	Action     string      `json:"action"`
	Issue      *Issue      `json:"issue,omitempty"`
	Comment    *Comment    `json:"comment,omitempty"`
	Discussion *Discussion `json:"discussion,omitempty"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

type User struct {
	Login string `json:"login"`
}

type Label struct {
	Name string `json:"name"`
}

type Issue struct {
	Number  int     `json:"number"`
	Title   string  `json:"title"`
	Body    string  `json:"body"`
	HTMLURL string  `json:"html_url"`
	User    User    `json:"user"`
	Labels  []Label `json:"labels"`
}

type Comment struct {
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
	User    User   `json:"user"`
}

type Discussion struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	HTMLURL  string `json:"html_url"`
	User     User   `json:"user"`
	Category struct {
		Name string `json:"name"`
	} `json:"category"`
}

// Adapter converts GitHub events to feedback messages
type Adapter struct {
	Event   string // X-GitHub-Event header
	Webhook Webhook
}

// ToFeedback maps the event; unsupported events and actions yield nothing
func (a *Adapter) ToFeedback() ([]queue.ProcessFeedback, error) {
	w := a.Webhook
	now := time.Now().UTC()
	repo := w.Repository.FullName

	switch {
	case a.Event == "issues" && (w.Action == "opened" || w.Action == "edited") && w.Issue != nil:
		labels := make([]string, 0, len(w.Issue.Labels))
		for _, l := range w.Issue.Labels {
			labels = append(labels, l.Name)
		}
		return []queue.ProcessFeedback{{
			Content: joinTitle(w.Issue.Title, w.Issue.Body),
			Source:  types.SourceGitHub,
			Metadata: map[string]any{
				"github_issue_number": w.Issue.Number,
				"github_issue_url":    w.Issue.HTMLURL,
				"github_repo":         repo,
				"github_user":         w.Issue.User.Login,
				"github_labels":       labels,
			},
			ReceivedAt: now,
		}}, nil

	case a.Event == "issue_comment" && w.Action == "created" && w.Comment != nil:
		meta := map[string]any{
			"github_comment_url": w.Comment.HTMLURL,
			"github_repo":        repo,
			"github_user":        w.Comment.User.Login,
		}
		if w.Issue != nil {
			meta["github_issue_number"] = w.Issue.Number
		}
		return []queue.ProcessFeedback{{
			Content:    w.Comment.Body,
			Source:     types.SourceGitHub,
			Metadata:   meta,
			ReceivedAt: now,
		}}, nil

	case a.Event == "discussion" && (w.Action == "created" || w.Action == "edited") && w.Discussion != nil:
		return []queue.ProcessFeedback{{
			Content: joinTitle(w.Discussion.Title, w.Discussion.Body),
			Source:  types.SourceGitHub,
			Metadata: map[string]any{
				"github_discussion_url": w.Discussion.HTMLURL,
				"github_repo":           repo,
				"github_user":           w.Discussion.User.Login,
				"github_category":       w.Discussion.Category.Name,
			},
			ReceivedAt: now,
		}}, nil
	}

	return nil, nil
}

// GetSource returns the source identifier
func (a *Adapter) GetSource() string {
	return "github"
}

func joinTitle(title, body string) string {
	return strings.TrimSpace(title + "\n\n" + body)
}
