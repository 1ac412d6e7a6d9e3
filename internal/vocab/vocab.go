// Package vocab holds the closed vocabularies used to normalize free-text
// categorical columns. The tables are data: they ship embedded as YAML and
// can be extended with a second YAML file without touching any code.
package vocab

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"permitnorm/internal/util"
)

type Domain string

const (
	ProjectType      Domain = "project_type"
	PermitStatus     Domain = "permit_status"
	InspectionStatus Domain = "inspection_status"
)

// Domains lists the vocabularies every Set must carry.
var Domains = []Domain{ProjectType, PermitStatus, InspectionStatus}

//go:embed vocabulary.yaml
var embedded []byte

// Group is one canonical value and the spellings that map to it.
type Group struct {
	Canonical string   `yaml:"canonical"`
	Variants  []string `yaml:"variants"`
}

// File is the on-disk layout of a vocabulary document.
type File struct {
	Version           string             `yaml:"version"`
	FailedNotePhrases []string           `yaml:"failed_note_phrases"`
	Domains           map[string][]Group `yaml:"domains"`
}

// Conflict is a variant that was refused because its key is itself a
// canonical value of a different category in the same domain.
type Conflict struct {
	Domain    Domain
	Variant   string
	Canonical string
	Kept      string
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s: %q -> %q refused, canonical %q kept", c.Domain, c.Variant, c.Canonical, c.Kept)
}

// Vocabulary is the lookup table of a single domain.
type Vocabulary struct {
	Domain    Domain
	lookup    map[string]string
	canonical []string
}

// Lookup maps a raw value to its canonical category. The empty canonical
// value is a legitimate result.
func (v *Vocabulary) Lookup(raw string) (string, bool) {
	if v == nil {
		return "", false
	}
	key := util.NormalizeKey(raw)
	if key == "" {
		return "", false
	}
	canonical, ok := v.lookup[key]
	return canonical, ok
}

// Canonical returns the non-empty canonical values in declaration order.
func (v *Vocabulary) Canonical() []string {
	out := make([]string, len(v.canonical))
	copy(out, v.canonical)
	return out
}

// Entries returns key -> canonical pairs sorted by canonical then key.
func (v *Vocabulary) Entries() [][2]string {
	out := make([][2]string, 0, len(v.lookup))
	for k, c := range v.lookup {
		out = append(out, [2]string{k, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][1] != out[j][1] {
			return out[i][1] < out[j][1]
		}
		return out[i][0] < out[j][0]
	})
	return out
}

func (v *Vocabulary) Len() int { return len(v.lookup) }

// Set is the full collection of vocabularies used by one pipeline.
type Set struct {
	Version           string
	FailedNotePhrases []string
	Conflicts         []Conflict
	vocabularies      map[Domain]*Vocabulary
}

func (s *Set) Get(d Domain) *Vocabulary {
	return s.vocabularies[d]
}

var (
	defaultOnce sync.Once
	defaultSet  *Set
	defaultErr  error
)

// Default returns the embedded vocabularies, parsed once per process.
func Default() (*Set, error) {
	defaultOnce.Do(func() {
		var f File
		f, defaultErr = Parse(embedded)
		if defaultErr != nil {
			return
		}
		defaultSet, defaultErr = Build(f)
	})
	return defaultSet, defaultErr
}

// Load returns the embedded vocabularies extended by the YAML file at path.
// An empty path returns the defaults.
func Load(path string) (*Set, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	base, err := Parse(embedded)
	if err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	ext, err := Parse(blob)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Build(base, ext)
}

// Parse decodes one vocabulary document.
func Parse(blob []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(blob, &f); err != nil {
		return File{}, fmt.Errorf("parse vocabulary: %w", err)
	}
	for name := range f.Domains {
		if !knownDomain(Domain(name)) {
			return File{}, fmt.Errorf("parse vocabulary: unknown domain %q", name)
		}
	}
	return f, nil
}

// Build merges documents in order; later documents override earlier
// variants. Every non-empty canonical value maps to itself and cannot be
// re-pointed, so mapping an already mapped column changes nothing.
func Build(files ...File) (*Set, error) {
	set := &Set{vocabularies: map[Domain]*Vocabulary{}}
	for _, f := range files {
		if f.Version != "" {
			set.Version = f.Version
		}
		set.FailedNotePhrases = appendPhrases(set.FailedNotePhrases, f.FailedNotePhrases)
	}

	for _, d := range Domains {
		v := &Vocabulary{Domain: d, lookup: map[string]string{}}
		self := map[string]bool{}
		for _, f := range files {
			for _, g := range f.Domains[string(d)] {
				c := strings.TrimSpace(g.Canonical)
				key := util.NormalizeKey(c)
				if key == "" || self[key] {
					continue
				}
				self[key] = true
				v.lookup[key] = c
				v.canonical = append(v.canonical, c)
			}
		}
		for _, f := range files {
			for _, g := range f.Domains[string(d)] {
				c := strings.TrimSpace(g.Canonical)
				for _, variant := range g.Variants {
					key := util.NormalizeKey(variant)
					if key == "" {
						continue
					}
					if self[key] && v.lookup[key] != c {
						set.Conflicts = append(set.Conflicts, Conflict{Domain: d, Variant: variant, Canonical: c, Kept: v.lookup[key]})
						continue
					}
					v.lookup[key] = c
				}
			}
		}
		if len(v.lookup) == 0 {
			return nil, fmt.Errorf("vocabulary %s is empty", d)
		}
		set.vocabularies[d] = v
	}
	return set, nil
}

func appendPhrases(dst, src []string) []string {
	seen := map[string]bool{}
	for _, p := range dst {
		seen[p] = true
	}
	for _, p := range src {
		p = util.NormalizeKey(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		dst = append(dst, p)
	}
	return dst
}

func knownDomain(d Domain) bool {
	for _, known := range Domains {
		if known == d {
			return true
		}
	}
	return false
}
