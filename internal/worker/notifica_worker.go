package worker

// notifica_worker.go
// Processes publish notification jobs from QueueNotifiche: after a batch is
// published, a summary of the outcome is mailed to the configured recipient.

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"listino/internal/infra"

	"github.com/rs/zerolog/log"
)

// NotificaPayload is the job envelope sent to QueueNotifiche.
type NotificaPayload struct {
	To        string `json:"to"`
	BatchNome string `json:"batch_nome"`
	Store     string `json:"store"`
	Actor     string `json:"actor"`
	Esito     string `json:"esito"`
	Errori    []struct {
		SKU    string `json:"sku"`
		Errore string `json:"errore"`
	} `json:"errori"`
}

type NotificaWorker struct {
	mailer *infra.Mailer
}

func NewNotificaWorker(mailer *infra.Mailer) *NotificaWorker {
	return &NotificaWorker{mailer: mailer}
}

// Process sends the publish outcome email.
func (w *NotificaWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload NotificaPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("notifica_worker: invalid payload")
		return nil // malformed payloads are not retryable
	}
	if payload.To == "" || !w.mailer.Enabled() {
		log.Debug().Msg("notifica_worker: notifications disabled — skipping")
		return nil
	}

	subject := fmt.Sprintf("Pubblicazione batch %q: %s", payload.BatchNome, payload.Esito)

	var b strings.Builder
	fmt.Fprintf(&b, "Batch: %s\nStore: %s\nEseguito da: %s\nEsito: %s\n",
		payload.BatchNome, payload.Store, payload.Actor, payload.Esito)
	if len(payload.Errori) > 0 {
		b.WriteString("\nErrori:\n")
		for _, e := range payload.Errori {
			fmt.Fprintf(&b, "  %s: %s\n", e.SKU, e.Errore)
		}
	}

	if err := w.mailer.Send(payload.To, subject, b.String()); err != nil {
		log.Error().Err(err).Str("to", payload.To).Msg("notifica_worker: failed to send email")
		return err
	}
	log.Info().Str("to", payload.To).Str("esito", payload.Esito).Msg("notifica_worker: outcome mailed")
	return nil
}
