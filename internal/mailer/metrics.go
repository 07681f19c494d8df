package mailer

import (
	"context"

	"github.com/booali9/obe-comiler-backend/internal/observability"
)

// InstrumentedMailer counts sends per message kind and outcome.
type InstrumentedMailer struct {
	inner Mailer
	prom  *observability.Prom
}

func NewInstrumentedMailer(inner Mailer, prom *observability.Prom) *InstrumentedMailer {
	return &InstrumentedMailer{inner: inner, prom: prom}
}

func (m *InstrumentedMailer) SendOTP(ctx context.Context, to, name, otp string) error {
	err := m.inner.SendOTP(ctx, to, name, otp)
	m.record("otp", err)
	return err
}

func (m *InstrumentedMailer) SendFormAlert(ctx context.Context, alert FormAlert) error {
	err := m.inner.SendFormAlert(ctx, alert)
	m.record("form_alert", err)
	return err
}

func (m *InstrumentedMailer) SendExportReady(ctx context.Context, msg ExportReady) error {
	err := m.inner.SendExportReady(ctx, msg)
	m.record("export_ready", err)
	return err
}

func (m *InstrumentedMailer) record(kind string, err error) {
	if m.prom == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}

	m.prom.MailSendsTotal.WithLabelValues(kind, result).Inc()
}
