// Package topic decides, before any retrieval is spent, whether a question is
// about the subject a session covers.
package topic

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultKeywords []byte

const DefaultProfile = "vehicle"

// Confidence per number of distinct positive terms found. Tunable, not
// load-bearing.
const (
	ConfidenceOneTerm    = 0.7
	ConfidenceTwoTerms   = 0.9
	ConfidenceThreeTerms = 1.0
	MinConfidence        = 0.7
)

type Profile struct {
	Subject  string   `yaml:"subject"`
	Extends  string   `yaml:"extends"`
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
}

type keywordFile struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

type Result struct {
	Related    bool
	Confidence float64
	// Matched lists the positive terms found, or the single negative term that rejected the question.
	Matched []string
}

// Gate is immutable and safe for concurrent use.
type Gate struct {
	profile  string
	subject  string
	positive []string
	negative []string
}

// New loads a profile from the built-in keyword file.
func New(profile string) (*Gate, error) {
	return Load(defaultKeywords, profile)
}

// LoadFile loads a profile from a YAML file with the same layout as the built-in one.
func LoadFile(path, profile string) (*Gate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyword file: %w", err)
	}
	return Load(data, profile)
}

func Load(data []byte, profile string) (*Gate, error) {
	if profile == "" {
		profile = DefaultProfile
	}

	var kf keywordFile
	if err := yaml.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse keyword file: %w", err)
	}

	resolved, err := resolve(kf.Profiles, profile, map[string]bool{})
	if err != nil {
		return nil, err
	}
	if len(resolved.Positive) == 0 {
		return nil, fmt.Errorf("topic profile %q has no positive terms", profile)
	}

	return &Gate{
		profile:  profile,
		subject:  resolved.Subject,
		positive: normalize(resolved.Positive),
		negative: normalize(resolved.Negative),
	}, nil
}

// resolve merges a profile with the chain it extends. The child's subject wins.
func resolve(profiles map[string]Profile, name string, seen map[string]bool) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown topic profile %q", name)
	}
	if seen[name] {
		return Profile{}, fmt.Errorf("topic profile %q extends itself", name)
	}
	seen[name] = true

	if p.Extends == "" {
		return p, nil
	}
	parent, err := resolve(profiles, p.Extends, seen)
	if err != nil {
		return Profile{}, err
	}

	merged := Profile{
		Subject:  p.Subject,
		Positive: append(append([]string{}, parent.Positive...), p.Positive...),
		Negative: append(append([]string{}, parent.Negative...), p.Negative...),
	}
	if merged.Subject == "" {
		merged.Subject = parent.Subject
	}
	return merged, nil
}

func normalize(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func (g *Gate) Profile() string {
	return g.profile
}

// Subject is the human description used in refusals.
func (g *Gate) Subject() string {
	return g.subject
}

// Evaluate rejects on any negative term, otherwise scores by the number of
// distinct positive terms present.
func (g *Gate) Evaluate(question string) Result {
	q := strings.ToLower(question)

	for _, term := range g.negative {
		if strings.Contains(q, term) {
			return Result{Related: false, Confidence: 0, Matched: []string{term}}
		}
	}

	var matched []string
	for _, term := range g.positive {
		if strings.Contains(q, term) {
			matched = append(matched, term)
		}
	}

	conf := confidence(len(matched))
	return Result{Related: conf >= MinConfidence, Confidence: conf, Matched: matched}
}

func confidence(found int) float64 {
	switch {
	case found >= 3:
		return ConfidenceThreeTerms
	case found == 2:
		return ConfidenceTwoTerms
	case found == 1:
		return ConfidenceOneTerm
	default:
		return 0
	}
}
