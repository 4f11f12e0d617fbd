// Package mail abstracts email delivery.
//
// Callers build a Message and hand it to the Mail interface; the SMTP
// implementation in this package is the only concrete sender, and tests use
// in-memory fakes.
package mail
