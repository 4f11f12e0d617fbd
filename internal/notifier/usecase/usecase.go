// Package usecase delivers issued one-time codes out of band, by email for
// email identities and through an SMS gateway topic for phone identities.
package usecase

import (
	"context"

	"github.com/otpgate/otpgate/internal/pkg/config"
	"github.com/otpgate/otpgate/internal/pkg/instrument"
	"github.com/otpgate/otpgate/internal/pkg/mail"
	"github.com/otpgate/otpgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type repoEmail interface {
	Send(ctx context.Context, msg mail.Message) error
}

type repoSMS interface {
	ForwardCode(ctx context.Context, phone, code string) error
}

type Usecase struct {
	repoEmail repoEmail
	repoSMS   repoSMS
	validator validator.Validator
	cfg       config.Config
	ins       instrument.Instrumentation
}

type Dependency struct {
	RepoEmail  repoEmail
	RepoSMS    repoSMS
	Validator  validator.Validator
	Config     config.Config
	Instrument instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoEmail: dep.RepoEmail,
		repoSMS:   dep.RepoSMS,
		validator: dep.Validator,
		cfg:       dep.Config,
		ins:       dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notifier.usecase").Start(ctx, name)
}
