// Copyright 2015 Google Inc. All Rights Reserved.

package vfs

import "strings"

// Normalize implements spec.md §4.4: split on "/", collapse separator
// runs, discard ".", pop the stack for "..", and rejoin. Popping past
// the root is a no-op, never an error. The input must be absolute;
// Normalize itself doesn't enforce that -- callers check (spec.md §4.4
// step 0) so this stays a pure, allocation-local function.
//
// Normalize(Normalize(p)) == Normalize(p) for all valid absolute p
// (spec.md §8 invariant 4).
func Normalize(path string) string {
	parts := strings.Split(path, "/")
	stack := make([]string, 0, len(parts))

	for _, p := range parts {
		switch p {
		case "", ".":
			// Collapsed separator run, or a no-op component.
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, p)
		}
	}

	if len(stack) == 0 {
		return "/"
	}
	return "/" + strings.Join(stack, "/")
}

// isAbsolute reports whether path starts with a separator, as spec.md
// §4.4 step 0 requires of every input path.
func isAbsolute(path string) bool {
	return len(path) > 0 && path[0] == '/'
}

// splitAfterPrefix returns the normalized path's components strictly
// after the given normalized mountpoint prefix. mountpoint must already
// have matched via findBestMount.
func splitAfterPrefix(path, mountpoint string) []string {
	rest := path[len(mountpoint):]
	rest = strings.TrimPrefix(rest, "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
