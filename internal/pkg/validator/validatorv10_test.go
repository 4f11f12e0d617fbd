package validator

import (
	"errors"
	"testing"
)

type challengeInput struct {
	Identity string `validate:"required,identity"`
}

type verifyInput struct {
	Identity string `validate:"required,identity"`
	Code     string `validate:"required,otpcode"`
}

func TestIdentityRule(t *testing.T) {
	v, err := NewV10Validator()
	if err != nil {
		t.Fatalf("NewV10Validator() error: %v", err)
	}

	valid := []string{"alice@example.com", "a.b+tag@sub.example.org", "+14155552671", "+628123456789"}
	for _, id := range valid {
		if err := v.Validate(challengeInput{Identity: id}); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", id, err)
		}
	}

	invalid := []string{"", "not-an-identity", "alice@", "@example.com", "0812345678", "+0123456", "+1"}
	for _, id := range invalid {
		err := v.Validate(challengeInput{Identity: id})

		var ve V10ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("Validate(%q) = %v, want V10ValidationError", id, err)
			continue
		}
		if _, ok := ve.Values()["identity"]; !ok {
			t.Errorf("Validate(%q) missing identity field error: %v", id, ve)
		}
	}
}

func TestOTPCodeRule(t *testing.T) {
	v, err := NewV10Validator()
	if err != nil {
		t.Fatalf("NewV10Validator() error: %v", err)
	}

	if err := v.Validate(verifyInput{Identity: "alice@example.com", Code: "042371"}); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	for _, code := range []string{"12", "abcdef", "1234567890123", "12 456"} {
		err := v.Validate(verifyInput{Identity: "alice@example.com", Code: code})

		var ve V10ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("Validate(code=%q) = %v, want V10ValidationError", code, err)
			continue
		}
		if _, ok := ve.Values()["code"]; !ok {
			t.Errorf("Validate(code=%q) missing code field error: %v", code, ve)
		}
	}
}
