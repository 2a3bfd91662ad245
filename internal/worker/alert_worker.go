package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"lotledger/internal/infra"

	"github.com/rs/zerolog/log"
)

// AlertWorker delivers escalation emails for accounting inconsistencies and
// failed batch operations.
type AlertWorker struct {
	mailer *infra.Mailer
	to     string
}

func NewAlertWorker(mailer *infra.Mailer, to string) *AlertWorker {
	return &AlertWorker{mailer: mailer, to: to}
}

func (w *AlertWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload AlertPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("alert_worker: invalid payload: %w", err)
	}
	if w.to == "" {
		log.Warn().Str("subject", payload.Subject).Msg("alert_worker: no ALERT_EMAIL configured — logging only")
		return nil
	}
	if err := w.mailer.SendAlert(w.to, payload.Subject, payload.Body); err != nil {
		return fmt.Errorf("alert_worker: send: %w", err)
	}
	log.Info().Str("subject", payload.Subject).Msg("alert delivered")
	return nil
}
