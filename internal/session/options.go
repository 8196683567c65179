package session

import (
	"fmt"
	"log/slog"

	"github.com/terra-clan/drills/internal/editor"
)

// Theme is the persisted display theme
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ThemeKey is the preference key holding the theme
const ThemeKey = "theme"

// DefaultCategory is active until the user picks another one
const DefaultCategory = "DSA"

func themeFor(dark bool) Theme {
	if dark {
		return ThemeDark
	}
	return ThemeLight
}

func editorThemeFor(dark bool) string {
	if dark {
		return editor.ThemeMaterialDarker
	}
	return editor.ThemeDefault
}

// SkeletonPolicy decides how starting code is derived from fetched code
type SkeletonPolicy int

const (
	// StripEntryPoint drops everything from the entry-point block onward
	StripEntryPoint SkeletonPolicy = iota
	// Verbatim shows the fetched code unchanged
	Verbatim
)

// ParseSkeletonPolicy accepts "strip" or "verbatim"
func ParseSkeletonPolicy(s string) (SkeletonPolicy, error) {
	switch s {
	case "", "strip":
		return StripEntryPoint, nil
	case "verbatim":
		return Verbatim, nil
	default:
		return 0, fmt.Errorf("unknown skeleton policy: %q", s)
	}
}

// RefreshPolicy decides when listings are refreshed after a submission
type RefreshPolicy int

const (
	// RefreshOnSuccess refreshes only after a response was received
	RefreshOnSuccess RefreshPolicy = iota
	// RefreshAlways also refreshes after a transport failure
	RefreshAlways
)

// ParseRefreshPolicy accepts "success" or "always"
func ParseRefreshPolicy(s string) (RefreshPolicy, error) {
	switch s {
	case "", "success":
		return RefreshOnSuccess, nil
	case "always":
		return RefreshAlways, nil
	default:
		return 0, fmt.Errorf("unknown refresh policy: %q", s)
	}
}

// Options configures a Controller
type Options struct {
	DefaultCategory string
	Skeleton        SkeletonPolicy
	Refresh         RefreshPolicy
	Editor          editor.Options
	Display         Display
	Logger          *slog.Logger
}

// DefaultOptions returns the standard controller setup
func DefaultOptions() Options {
	return Options{
		DefaultCategory: DefaultCategory,
		Skeleton:        StripEntryPoint,
		Refresh:         RefreshOnSuccess,
		Editor:          editor.DefaultOptions(),
	}
}
