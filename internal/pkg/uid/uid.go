// Package uid provides the id generators used across the application:
// snowflake for numeric row ids, UUID for opaque string ids.
package uid

// NumberID generates unique numeric identifiers.
type NumberID interface {
	Generate() int64
}

// StringID generates unique string identifiers.
type StringID interface {
	Generate() string
}
