package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/ridegate/be-commute-permits/internal/apperrors"
	"github.com/ridegate/be-commute-permits/internal/service"
)

// NATSMessenger delivers structured notification messages over NATS.
//
// Subject convention: <prefix>.<notification_type>, e.g.
// notifications.commute.expiry_warning. The downstream notifications
// service fans the message out to the recipient's channels.
type NATSMessenger struct {
	conn          *nats.Conn
	subjectPrefix string
	log           zerolog.Logger
}

// messageEnvelope is the JSON schema published to NATS.
type messageEnvelope struct {
	RecipientID string  `json:"recipient_id"`
	Type        string  `json:"type"`
	DocumentID  *string `json:"document_id,omitempty"`
	Title       string  `json:"title"`
	Message     string  `json:"message"`
}

// NewNATSMessenger connects to NATS and returns a messenger.
func NewNATSMessenger(url, subjectPrefix string, log zerolog.Logger) (*NATSMessenger, error) {
	conn, err := nats.Connect(url,
		nats.Name("be-commute-permits"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSMessenger{
		conn:          conn,
		subjectPrefix: subjectPrefix,
		log:           log,
	}, nil
}

// Close drains and closes the NATS connection.
func (m *NATSMessenger) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}

// Deliver publishes one message. The caller decides what a delivery
// failure means; this client only reports it.
func (m *NATSMessenger) Deliver(ctx context.Context, recipientID string, msg service.Message) error {
	envelope := messageEnvelope{
		RecipientID: recipientID,
		Type:        string(msg.Type),
		DocumentID:  msg.DocumentID,
		Title:       msg.Title,
		Message:     msg.Body,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to marshal message")
	}

	subject := fmt.Sprintf("%s.%s", m.subjectPrefix, msg.Type)
	if err := m.conn.Publish(subject, data); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeExternal,
			fmt.Sprintf("failed to publish to %s", subject))
	}

	m.log.Debug().
		Str("subject", subject).
		Str("recipient_id", recipientID).
		Msg("notification: message published")

	return nil
}
