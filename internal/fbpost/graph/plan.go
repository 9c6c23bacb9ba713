package graph

import (
	"os"
	"strings"

	"github.com/blacktop/fbpost/internal/fbpost"
)

// Kind selects which Graph API request sequence publishes a post.
type Kind int

const (
	// KindText is a single form-encoded feed post.
	KindText Kind = iota
	// KindPhoto is a single multipart photos post that publishes immediately.
	KindPhoto
	// KindMultiPhoto uploads unpublished photos and attaches them to one feed post.
	KindMultiPhoto
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindPhoto:
		return "photo"
	case KindMultiPhoto:
		return "multi-photo"
	}
	return "unknown"
}

const messageSeparator = "\n\n"

// Plan is the resolved shape of a post before any request is made.
type Plan struct {
	Kind    Kind
	Message string
	Images  []string
	// Skipped lists image paths that were set but not found on disk.
	Skipped []string
}

// NewPlan combines messages into a single post. Non-empty contents are joined
// by a blank line and existing images are kept, both in input order. Images
// that do not exist are dropped without error.
func NewPlan(msgs ...fbpost.Message) Plan {
	var (
		plan  Plan
		parts []string
	)
	for _, msg := range msgs {
		if msg.Content != "" {
			parts = append(parts, msg.Content)
		}
		if msg.ImagePath == "" {
			continue
		}
		if imageExists(msg.ImagePath) {
			plan.Images = append(plan.Images, msg.ImagePath)
		} else {
			plan.Skipped = append(plan.Skipped, msg.ImagePath)
		}
	}
	plan.Message = strings.Join(parts, messageSeparator)

	switch len(plan.Images) {
	case 0:
		plan.Kind = KindText
	case 1:
		plan.Kind = KindPhoto
	default:
		plan.Kind = KindMultiPhoto
	}
	return plan
}

func imageExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
