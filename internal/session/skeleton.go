package session

import (
	"strings"
	"unicode"
)

// entryPointMarker starts the script boilerplate that follows the exercise function
const entryPointMarker = "\nif __name__ == "

// DeriveSkeleton returns the starting code shown in the editor
func DeriveSkeleton(code string, policy SkeletonPolicy) string {
	if policy == Verbatim {
		return code
	}
	head, _, _ := strings.Cut(code, entryPointMarker)
	return strings.TrimRightFunc(head, unicode.IsSpace) + "\n"
}
