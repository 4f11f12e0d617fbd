// Package validator wraps struct validation behind a small interface.
//
// The v10 implementation registers the domain rules (identity, otpcode,
// alphaspace) and translates failures into a field-to-message map that the
// HTTP layer returns verbatim.
package validator
