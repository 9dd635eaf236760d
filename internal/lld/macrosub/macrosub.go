// Package macrosub implements the macro substitutor spec.md §6 lists as
// an external collaborator: interpolation of host-scoped {$MACRO}
// references into lifetime specs and literal filter-condition regex
// patterns (spec.md §4.2, §4.3), plus the named global regular-expression
// registry referenced by "@name" condition values (spec.md §4.3).
package macrosub

import (
	"context"
	"regexp"
)

// Mode selects the caller's substitution context. The mechanics are
// identical across modes; the mode exists so log lines and metrics can
// distinguish lifetime substitution from filter-pattern interpolation,
// and so a future mode-specific macro resolver (e.g. one excluding
// certain macros from lifetime specs) has somewhere to hook in.
type Mode int

const (
	// ModeLLDFilter interpolates a literal regex pattern before it is
	// compiled (spec.md §4.3). Never applied to named-expression
	// references — that asymmetry is intentional (spec.md §9).
	ModeLLDFilter Mode = iota
	// ModeLifetime interpolates a rule's lifetime-spec duration string
	// (spec.md §4.2).
	ModeLifetime
)

func (m Mode) String() string {
	if m == ModeLifetime {
		return "lifetime"
	}
	return "lld-filter"
}

// macroToken matches a host-scoped user macro reference, e.g. {$TIMEOUT}
// or {$TIMEOUT:"context"}.
var macroToken = regexp.MustCompile(`\{\$[A-Za-z0-9_.]+(?::[^}]*)?\}`)

// MacroSource resolves a host's user macros. Implemented by
// internal/lld/configcache.Cache, which reads the per-host macro map
// stored with PutHostMacros.
type MacroSource interface {
	HostMacros(ctx context.Context, hostID int64) (map[string]string, error)
}

// Substitutor interpolates host-scoped macros into text.
type Substitutor struct {
	source MacroSource
}

// New builds a Substitutor backed by source.
func New(source MacroSource) *Substitutor {
	return &Substitutor{source: source}
}

// Substitute replaces every {$NAME} token in text with its value from
// the host's macro set. Unresolved tokens are left literal — the
// original text is safe to use as-is even for hosts with no matching
// macro definition.
func (s *Substitutor) Substitute(ctx context.Context, _ Mode, hostID int64, text string) (string, error) {
	if !macroToken.MatchString(text) {
		return text, nil
	}

	macros, err := s.source.HostMacros(ctx, hostID)
	if err != nil {
		return "", err
	}

	return macroToken.ReplaceAllStringFunc(text, func(token string) string {
		if v, ok := macros[token]; ok {
			return v
		}
		return token
	}), nil
}
