package lld

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/c360/lld/internal/lld/catalog"
	"github.com/c360/lld/internal/lld/macrosub"
)

// lifetimePattern matches the project's simple time format: a count of
// whole units followed by an optional s/m/h/d/w suffix, defaulting to
// seconds when the suffix is omitted.
var lifetimePattern = regexp.MustCompile(`^(\d+)([smhdw]?)$`)

// parseLifetime parses a macro-substituted lifetime spec into a
// duration (spec.md §4.2).
func parseLifetime(spec string) (time.Duration, error) {
	spec = strings.TrimSpace(spec)
	m := lifetimePattern.FindStringSubmatch(spec)
	if m == nil {
		return 0, fmt.Errorf("invalid lifetime spec %q", spec)
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid lifetime spec %q: %w", spec, err)
	}

	unit := time.Second
	switch m[2] {
	case "", "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	case "w":
		unit = 7 * 24 * time.Hour
	}
	return time.Duration(n) * unit, nil
}

// resolveLifetime implements the Rule Loader's lifetime handling
// (spec.md §4.2/§7): substitute host-scoped macros into rule's lifetime
// spec (mode lifetime), parse the result, and on any failure log
// lifetime-invalid and fall back to the configured clamp. A lifetime
// that parses but exceeds the clamp is capped to it as well.
func (o *Orchestrator) resolveLifetime(ctx context.Context, logger *slog.Logger, rule catalog.Rule) time.Duration {
	spec := rule.LifetimeSpec

	if o.lifetimeSub != nil && spec != "" {
		substituted, err := o.lifetimeSub.Substitute(ctx, macrosub.ModeLifetime, rule.HostID, spec)
		if err != nil {
			logger.Warn("lifetime-invalid", "lifetime_spec", rule.LifetimeSpec, "error", err)
			return o.config.LifetimeMaxClamp
		}
		spec = substituted
	}

	d, err := parseLifetime(spec)
	if err != nil {
		logger.Warn("lifetime-invalid", "lifetime_spec", rule.LifetimeSpec, "error", err)
		return o.config.LifetimeMaxClamp
	}
	if d > o.config.LifetimeMaxClamp {
		return o.config.LifetimeMaxClamp
	}
	return d
}
