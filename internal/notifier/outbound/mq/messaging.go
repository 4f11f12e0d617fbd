package mq

import (
	"context"
	"encoding/json"

	"github.com/otpgate/otpgate/internal/pkg/config"
	"github.com/otpgate/otpgate/internal/pkg/instrument"
	"github.com/otpgate/otpgate/internal/pkg/messaging"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

// Messaging forwards phone deliveries to the external SMS gateway topic.
type Messaging struct {
	client messaging.Messaging
	cfg    config.Config
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Messaging, cfg config.Config, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, cfg: cfg, ins: ins}
}

type smsPayload struct {
	Phone string `json:"phone"`
	Body  string `json:"body"`
}

func (m *Messaging) ForwardCode(ctx context.Context, phone, code string) error {
	ctx, span := m.ins.Tracer("notifier.outbound.mq").Start(ctx, "ForwardCode")
	defer span.End()

	body, err := json.Marshal(smsPayload{
		Phone: phone,
		Body:  "Your verification code is " + code,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	err = m.client.Publish(ctx, m.cfg.GetString("modules.notifier.sms_topic"), messaging.OutgoingMessage{
		Body: body,
		Key:  []byte(phone),
		Headers: map[string]string{
			keyOfCorrelationID: instrument.GetCorrelationID(ctx),
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
