package sanitize

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// Rule is a single substitution applied to a candidate directory name.
// Rules are ordered: each rule operates on the output of the rules before
// it, not on the original input.
type Rule struct {
	Pattern     string `json:"pattern"     yaml:"pattern"`
	Replacement string `json:"replacement" yaml:"replacement"`
	IsRegex     bool   `json:"is_regex"    yaml:"is_regex"`
}

// Apply runs every rule in order against name and returns the result.
//
// Literal rules replace all occurrences of Pattern with Replacement. Regex
// rules replace all non-overlapping matches, with Replacement treated as a
// substitution template. A rule with an empty Pattern is skipped. A rule
// whose Pattern fails to compile is logged and skipped; the remaining rules
// still run. Apply never fails and has no side effects.
func Apply(ctx context.Context, name string, rules []Rule) string {
	logger := zerolog.Ctx(ctx)

	out := name
	for _, rule := range rules {
		if rule.Pattern == "" {
			continue
		}

		before := out
		if rule.IsRegex {
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				logger.Error().
					Err(err).
					Str("pattern", rule.Pattern).
					Msg("invalid regex in sanitization rule, rule skipped")
				continue
			}
			out = re.ReplaceAllString(out, rule.Replacement)
		} else {
			out = strings.ReplaceAll(out, rule.Pattern, rule.Replacement)
		}

		if before != out {
			logger.Debug().
				Str("pattern", rule.Pattern).
				Str("replacement", rule.Replacement).
				Str("before", before).
				Str("after", out).
				Msg("sanitization rule applied")
		}
	}

	return out
}
