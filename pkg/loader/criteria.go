package loader

import (
	"fmt"
	"strings"

	"github.com/arnavshah/team-builder-go/pkg/constraints"
	"github.com/arnavshah/team-builder-go/pkg/criteria"
	apperrors "github.com/arnavshah/team-builder-go/pkg/errors"
	"github.com/arnavshah/team-builder-go/pkg/scheduler"
)

// Weights resolves the weight of a criterion by its configuration key
type Weights func(key string, def float64) float64

// DefaultWeights weighs every criterion 1
func DefaultWeights(string, float64) float64 { return 1.0 }

// Criteria is the parsed form of a criteria string
type Criteria struct {
	Criteria []scheduler.Criterion
	// Same lists the same-feature splits in order; strict ones are also constraints
	Same []*constraints.SameFeature
	// Weak keys the same-features that split teams without constraining leaders
	Weak map[string]bool
}

// Strict lists the same-features enforced as constraints
func (c *Criteria) Strict() []*constraints.SameFeature {
	var out []*constraints.SameFeature
	for _, sf := range c.Same {
		if !c.Weak[sf.Key()] {
			out = append(out, sf)
		}
	}
	return out
}

// ParseCriteria parses a |-separated criteria list. Each entry is a comma
// separated attribute chain (the first attribute names it) with an optional
// prefix:
//
//	@  numeric feature
//	^  reversed feature (similar persons together)
//	#  room proximity feature
//	%  proportional feature
//	!  same-feature constraint, also splits the teams
//	?  same-feature used only to split the teams
//
// The entry TeamSize (or Team Size) adds the pair-count criterion and an
// entry without prefix is a categorical feature.
func ParseCriteria(s string, weights Weights) (*Criteria, error) {
	if weights == nil {
		weights = DefaultWeights
	}
	out := &Criteria{Weak: make(map[string]bool)}
	for _, entry := range strings.Split(s, "|") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if entry == "TeamSize" || entry == "Team Size" {
			out.Criteria = append(out.Criteria, criteria.NewTeamSize(weights("TeamSize", 1.0)))
			continue
		}

		kind, strict, weak := criteria.Categorical, false, false
		body := entry
		switch entry[0] {
		case '@':
			kind, body = criteria.Numeric, entry[1:]
		case '^':
			kind, body = criteria.Reversed, entry[1:]
		case '#':
			kind, body = criteria.Proximity, entry[1:]
		case '%':
			kind, body = criteria.Proportional, entry[1:]
		case '!':
			strict, body = true, entry[1:]
		case '?':
			weak, body = true, entry[1:]
		}
		chain := splitChain(body)
		if len(chain) == 0 {
			return nil, apperrors.NewValidationError("criteria", fmt.Sprintf("entry %q names no attribute", entry))
		}

		if strict || weak {
			sf := constraints.NewSameFeature(chain...)
			out.Same = append(out.Same, sf)
			if weak {
				out.Weak[sf.Key()] = true
			}
			continue
		}
		out.Criteria = append(out.Criteria, criteria.NewFeature(kind, weights(chain[0], 1.0), chain...))
	}
	return out, nil
}

func splitChain(s string) []string {
	var chain []string
	for _, key := range strings.Split(s, ",") {
		if key = strings.TrimSpace(key); key != "" {
			chain = append(chain, key)
		}
	}
	return chain
}
