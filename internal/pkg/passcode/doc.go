// Package passcode generates fixed-width numeric one-time codes.
//
// Codes are drawn uniformly from [0, 10^digits) using crypto/rand, so every
// code of the configured width, including ones with leading zeros, is equally
// likely. This is deliberately not TOTP: the code is random, delivered out of
// band, and has no shared secret with the holder.
package passcode
