// Package clock abstracts time.Now behind an interface.
//
// Challenge expiry and token lifetimes both hinge on the current time, so
// code takes a Clocker and tests substitute a fixed or advancing fake.
package clock
