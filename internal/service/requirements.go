package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"certdocs/internal/model"
	"certdocs/internal/policy"
)

// Requirement is a category policy annotated with whether the application satisfies it.
type Requirement struct {
	Category    model.Category `json:"category"`
	Description string         `json:"description"`
	Uploaded    bool           `json:"uploaded"`
	DocumentID  string         `json:"document_id,omitempty"`
}

type Requirements struct {
	Required []Requirement `json:"required"`
	Optional []Requirement `json:"optional"`
}

// Completion is the single answer to "may this application leave the document step".
type Completion struct {
	IsComplete bool             `json:"is_complete"`
	Missing    []model.Category `json:"missing"`
}

// Requirements performs no permission check; callers are expected to have
// authorized access to the application already.
func (s *documentService) Requirements(ctx context.Context, applicationID string) (reqs *Requirements, err error) {
	ctx, span := s.tracer.Start(ctx, "DocumentService.Requirements", trace.WithAttributes(attribute.String("application.id", applicationID)))
	defer func() { s.finish(span, "requirements", err) }()

	if _, err := s.snapshot(ctx, applicationID); err != nil {
		return nil, err
	}
	docs, err := s.listDocuments(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	policies, err := policy.All()
	if err != nil {
		return nil, err
	}
	return buildRequirements(policies, docs), nil
}

// buildRequirements partitions policies by their required flag. docs must be ordered
// newest first so a multi-document category points at its latest upload.
func buildRequirements(policies []policy.ValidationPolicy, docs []model.Document) *Requirements {
	latest := make(map[model.Category]string, len(docs))
	for _, d := range docs {
		if _, seen := latest[d.Category]; !seen {
			latest[d.Category] = d.ID
		}
	}

	out := &Requirements{Required: []Requirement{}, Optional: []Requirement{}}
	for _, p := range policies {
		id, uploaded := latest[p.Category]
		r := Requirement{
			Category:    p.Category,
			Description: p.Description,
			Uploaded:    uploaded,
			DocumentID:  id,
		}
		if p.Required {
			out.Required = append(out.Required, r)
		} else {
			out.Optional = append(out.Optional, r)
		}
	}
	return out
}

func (s *documentService) Completion(ctx context.Context, applicationID string) (*Completion, error) {
	reqs, err := s.Requirements(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return completionOf(reqs), nil
}

func completionOf(reqs *Requirements) *Completion {
	c := &Completion{Missing: []model.Category{}}
	for _, r := range reqs.Required {
		if !r.Uploaded {
			c.Missing = append(c.Missing, r.Category)
		}
	}
	c.IsComplete = len(c.Missing) == 0
	return c
}
