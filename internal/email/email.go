// Package email provides newsletter delivery for the Fanreach application.
//
// Campaigns arrive pre-rendered (HTML plus plain-text fallback), so this
// package only assembles and transmits messages; it never templates them.
package email

import (
	"context"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Sender delivers a single newsletter message to one recipient.
//
// Implementations:
// - SMTPSender: uses SMTP (Mailhog for dev, a relay service in production)
//
// All methods are context-aware for timeout and cancellation support.
type Sender interface {
	// Send delivers one message. A non-nil error means the recipient did not
	// receive the message; callers decide whether the failure is worth a
	// retry. The quota ledger treats the attempt as spent either way.
	Send(ctx context.Context, msg Message) error
}

// Message is a single rendered newsletter email.
type Message struct {
	To             string // Recipient email address
	Subject        string // Email subject line
	HTMLBody       string // Rendered HTML content
	TextBody       string // Plain text fallback content
	UnsubscribeURL string // Per-recipient unsubscribe link, also sent as a List-Unsubscribe header
}

// =============================================================================
// Configuration Types
// =============================================================================

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string // SMTP server hostname (e.g., "localhost" for Mailhog)
	Port     int    // SMTP server port (e.g., 1025 for Mailhog)
	Username string // SMTP authentication username (empty for Mailhog)
	Password string // SMTP authentication password (empty for Mailhog)
	From     string // Default sender email address
	FromName string // Default sender display name
}

// =============================================================================
// Common Constants
// =============================================================================

const (
	// DefaultFromEmail is the default sender email for newsletters.
	DefaultFromEmail = "noreply@fanreach.io"

	// DefaultFromName is the default sender display name.
	DefaultFromName = "Fanreach"
)
