package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Source records which path produced an envelope's payload.
type Source string

const (
	SourceAI       Source = "ai-powered"
	SourceFallback Source = "rule-based-fallback"
	SourceRuleOnly Source = "rule-based-only"
)

// TimestampFormat is ISO-8601 in UTC with millisecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Envelope tags a capability result with its provenance. Exactly one of AI
// and Fallback is set: AI when Source is SourceAI, Fallback otherwise.
// Switch on Source rather than testing the pointers.
type Envelope[A, F any] struct {
	Source    Source
	Note      string
	Timestamp time.Time
	AI        *A
	Fallback  *F
}

type (
	AnalysisEnvelope = Envelope[AIAnalysis, AnalysisReport]
	OpenAPIEnvelope  = Envelope[Fragment, Fragment]
	AuthEnvelope     = Envelope[AuthReview, AuthReview]
)

// Payload returns the populated variant.
func (e *Envelope[A, F]) Payload() any {
	if e.Source == SourceAI {
		return e.AI
	}
	return e.Fallback
}

type envelopeHeader struct {
	Source    Source `json:"source"`
	Note      string `json:"note,omitempty"`
	Timestamp string `json:"timestamp"`
}

// MarshalJSON flattens the header fields and the payload into one object,
// header first. The payload bytes are emitted exactly as the payload type
// marshals on its own.
func (e Envelope[A, F]) MarshalJSON() ([]byte, error) {
	head, err := json.Marshal(envelopeHeader{
		Source:    e.Source,
		Note:      e.Note,
		Timestamp: e.Timestamp.UTC().Format(TimestampFormat),
	})
	if err != nil {
		return nil, err
	}

	var body []byte
	switch e.Source {
	case SourceAI:
		if e.AI == nil {
			return nil, fmt.Errorf("envelope %s: missing payload", e.Source)
		}
		body, err = json.Marshal(e.AI)
	default:
		if e.Fallback == nil {
			return nil, fmt.Errorf("envelope %s: missing payload", e.Source)
		}
		body, err = json.Marshal(e.Fallback)
	}
	if err != nil {
		return nil, err
	}

	return mergeObjects(head, body)
}

func mergeObjects(head, body []byte) ([]byte, error) {
	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' || body[len(body)-1] != '}' {
		return nil, fmt.Errorf("envelope payload is not a JSON object")
	}
	inner := bytes.TrimSpace(body[1 : len(body)-1])
	if len(inner) == 0 {
		return head, nil
	}

	out := make([]byte, 0, len(head)+len(inner)+1)
	out = append(out, head[:len(head)-1]...)
	out = append(out, ',')
	out = append(out, inner...)
	out = append(out, '}')
	return out, nil
}
