package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/otpgate/otpgate/internal/pkg/config"
	"github.com/otpgate/otpgate/internal/pkg/instrument"
	"github.com/otpgate/otpgate/internal/pkg/mail"
	"github.com/otpgate/otpgate/internal/pkg/validator"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
modules:
  notifier:
    email_from: no-reply@otpgate.test
    sms_topic: sms_gateway_outbound
`

type fakeMail struct {
	sent []mail.Message
	fail bool
}

func (m *fakeMail) Send(_ context.Context, msg mail.Message) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeSMS struct {
	phones []string
	codes  []string
	fail   bool
}

func (s *fakeSMS) ForwardCode(_ context.Context, phone, code string) error {
	if s.fail {
		return errors.New("broker unavailable")
	}
	s.phones = append(s.phones, phone)
	s.codes = append(s.codes, code)
	return nil
}

func newFixture(t *testing.T) (*Usecase, *fakeMail, *fakeSMS) {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(testConfigYAML))
	require.NoError(t, err)

	v10, err := validator.NewV10Validator()
	require.NoError(t, err)

	fm := &fakeMail{}
	fs := &fakeSMS{}

	uc := New(Dependency{
		RepoEmail:  fm,
		RepoSMS:    fs,
		Validator:  v10,
		Config:     cfg,
		Instrument: instrument.NewNoop(),
	})

	return uc, fm, fs
}

func validInput() ConsumeOTPIssuedInput {
	return ConsumeOTPIssuedInput{
		PrincipalID: 42,
		Identity:    "user@example.com",
		Code:        "123456",
		ExpiresAt:   time.Now().Add(10 * time.Minute).Unix(),
	}
}

func TestConsumeOTPIssuedEmailIdentity(t *testing.T) {
	uc, fm, fs := newFixture(t)

	err := uc.ConsumeOTPIssued(context.Background(), validInput())
	require.NoError(t, err)

	require.Len(t, fm.sent, 1)
	require.Empty(t, fs.phones)
	require.Equal(t, []string{"user@example.com"}, fm.sent[0].To)
	require.Equal(t, "no-reply@otpgate.test", fm.sent[0].From)
	require.Contains(t, fm.sent[0].TextBody, "123456")
	require.Contains(t, fm.sent[0].TextBody, "expires in 10 minutes")
}

func TestConsumeOTPIssuedPhoneIdentity(t *testing.T) {
	uc, fm, fs := newFixture(t)

	in := validInput()
	in.Identity = "+14155550123"
	err := uc.ConsumeOTPIssued(context.Background(), in)
	require.NoError(t, err)

	require.Empty(t, fm.sent)
	require.Equal(t, []string{"+14155550123"}, fs.phones)
	require.Equal(t, []string{"123456"}, fs.codes)
}

func TestConsumeOTPIssuedMalformedPayloadDropped(t *testing.T) {
	uc, fm, fs := newFixture(t)

	in := validInput()
	in.Code = "not-a-code"
	err := uc.ConsumeOTPIssued(context.Background(), in)
	require.NoError(t, err)
	require.Empty(t, fm.sent)
	require.Empty(t, fs.phones)

	in = validInput()
	in.Identity = ""
	err = uc.ConsumeOTPIssued(context.Background(), in)
	require.NoError(t, err)
	require.Empty(t, fm.sent)
}

func TestConsumeOTPIssuedEmailFailureReturnsError(t *testing.T) {
	uc, fm, _ := newFixture(t)
	fm.fail = true

	err := uc.ConsumeOTPIssued(context.Background(), validInput())
	require.Error(t, err)
}

func TestConsumeOTPIssuedSMSFailureReturnsError(t *testing.T) {
	uc, _, fs := newFixture(t)
	fs.fail = true

	in := validInput()
	in.Identity = "+14155550123"
	err := uc.ConsumeOTPIssued(context.Background(), in)
	require.Error(t, err)
}
