package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Shubhamjha-sj/signal/pkg/types"
)

// Kind tags a message variant on the wire
type Kind string

const (
	KindProcessFeedback    Kind = "process_feedback"
	KindReclassifyFeedback Kind = "reclassify_feedback"
	KindAlertRaised        Kind = "alert_raised"
)

// ErrUnknownMessage is returned for a type tag or variant no handler knows
var ErrUnknownMessage = errors.New("unknown message type")

// Message is implemented only by the variants in this package
type Message interface {
	Kind() Kind
	sealed()
}

// ProcessFeedback asks the pipeline to classify, store and index new feedback
type ProcessFeedback struct {
	Content      string         `json:"content"`
	Source       types.Source   `json:"source"`
	CustomerID   string         `json:"customer_id,omitempty"`
	CustomerName string         `json:"customer_name,omitempty"`
	CustomerTier types.Tier     `json:"customer_tier,omitempty"`
	CustomerARR  int64          `json:"customer_arr,omitempty"`
	Product      string         `json:"product,omitempty"`
	UrgencyHint  int            `json:"urgency_hint,omitempty"` // used when the model cannot score urgency
	Metadata     map[string]any `json:"metadata,omitempty"`
	ReceivedAt   time.Time      `json:"received_at"`
}

// ReclassifyFeedback re-runs classification for a stored item
type ReclassifyFeedback struct {
	FeedbackID string `json:"feedback_id"`
}

// AlertRaised announces a persisted alert to downstream consumers
type AlertRaised struct {
	Alert types.Alert `json:"alert"`
}

func (ProcessFeedback) Kind() Kind    { return KindProcessFeedback }
func (ReclassifyFeedback) Kind() Kind { return KindReclassifyFeedback }
func (AlertRaised) Kind() Kind        { return KindAlertRaised }

func (ProcessFeedback) sealed()    {}
func (ReclassifyFeedback) sealed() {}
func (AlertRaised) sealed()        {}

type envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps a message in its typed envelope
func Encode(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", msg.Kind(), err)
	}
	return json.Marshal(envelope{Type: msg.Kind(), Payload: payload})
}

// Decode unwraps an envelope into its concrete variant
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}

	var (
		msg Message
		err error
	)
	switch env.Type {
	case KindProcessFeedback:
		var m ProcessFeedback
		err = json.Unmarshal(env.Payload, &m)
		msg = m
	case KindReclassifyFeedback:
		var m ReclassifyFeedback
		err = json.Unmarshal(env.Payload, &m)
		msg = m
	case KindAlertRaised:
		var m AlertRaised
		err = json.Unmarshal(env.Payload, &m)
		msg = m
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", env.Type, err)
	}
	return msg, nil
}
