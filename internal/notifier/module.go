// Package notifier consumes issued-code events and delivers the code out of
// band, by email or through the SMS gateway topic.
package notifier

import (
	"context"

	"github.com/otpgate/otpgate/internal/notifier/inbound"
	"github.com/otpgate/otpgate/internal/notifier/outbound/email"
	"github.com/otpgate/otpgate/internal/notifier/outbound/mq"
	"github.com/otpgate/otpgate/internal/notifier/usecase"
	"github.com/otpgate/otpgate/internal/pkg/config"
	"github.com/otpgate/otpgate/internal/pkg/goroutine"
	"github.com/otpgate/otpgate/internal/pkg/instrument"
	"github.com/otpgate/otpgate/internal/pkg/mail"
	"github.com/otpgate/otpgate/internal/pkg/messaging"
	"github.com/otpgate/otpgate/internal/pkg/uid"
	"github.com/otpgate/otpgate/internal/pkg/validator"
)

type Dependency struct {
	Messaging  messaging.Messaging        `validate:"required"`
	Mail       mail.Mail                  `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

func New(ctx context.Context, dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoEmail := email.New(dep.Mail, dep.Instrument)
	repoSMS := mq.NewMessaging(dep.Messaging, dep.Config, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoEmail:  repoEmail,
		RepoSMS:    repoSMS,
		Validator:  dep.Validator,
		Config:     dep.Config,
		Instrument: dep.Instrument,
	})

	inbound.RegisterMQConsumer(ctx, dep.Config, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument)

	return nil
}
