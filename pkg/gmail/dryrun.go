package gmail

import (
	"context"

	"github.com/google/uuid"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
	logx "github.com/tanpawarit/salesops-assistant/pkg/logger"
)

// DryRun logs outgoing mail instead of sending it. It is used when no Gmail
// credentials are configured.
type DryRun struct{}

func (DryRun) Send(ctx context.Context, msg contractx.OutgoingEmail) (string, error) {
	id := "dry-run-" + uuid.NewString()
	logx.Ctx(ctx).Info().
		Str("message_id", id).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("mail not sent: gmail is not configured")
	return id, nil
}
