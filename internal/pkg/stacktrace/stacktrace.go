// Package stacktrace condenses panic stacks for logging.
package stacktrace

import "strings"

// InternalPaths extracts the frames under this module's internal/ tree from
// a raw debug.Stack dump, trimmed to path.go:line. Vendor and runtime frames
// are dropped so panic logs point straight at our code.
func InternalPaths(stack []byte) []string {
	lines := strings.Split(string(stack), "\n")
	paths := make([]string, 0, len(lines))

	for i := 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		idx := strings.Index(line, ".go:")
		if idx == -1 {
			continue
		}

		end := strings.Index(line[idx:], " ")
		if end == -1 {
			end = len(line)
		} else {
			end += idx
		}

		internalIdx := strings.Index(line[:end], "/internal/")
		if internalIdx == -1 {
			continue
		}

		paths = append(paths, line[internalIdx+1:end])
	}

	return paths
}
