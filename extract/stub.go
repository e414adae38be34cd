package extract

import (
	"context"

	"github.com/paysplit/paysplit"
)

// Stub is an Extractor test double returning a canned candidate or error.
type Stub struct {
	Candidate *paysplit.CandidateInvoice
	Err       error
	// Texts records the inputs seen, in call order.
	Texts []string
}

// Extract returns the canned result.
func (s *Stub) Extract(ctx context.Context, text string) (*paysplit.CandidateInvoice, error) {
	s.Texts = append(s.Texts, text)
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Candidate, nil
}
