// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sections defines the ordered set of report sections and builds
// the per-section instruction prompt and search query. The canonical set
// has five sections; deployments may swap it for a YAML file.
package sections

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/account-research/pkg/types"
)

// ErrUnknownSection is returned when a section key is not in the set.
var ErrUnknownSection = errors.New("unknown section")

// Canonical section IDs.
const (
	BusinessOverview   types.SectionID = "business-overview"
	KeyInitiatives     types.SectionID = "key-initiatives"
	TechLandscape      types.SectionID = "tech-landscape"
	Stakeholders       types.SectionID = "relationship-stakeholders"
	StrategicNextSteps types.SectionID = "next-steps"
)

// financeDomains and techDomains are the trusted allow-lists applied to the
// finance- and technology-oriented sections.
var (
	financeDomains = []string{"sec.gov", "fdic.gov", "federalreserve.gov", "ffiec.gov", "bankingdive.com", "americanbanker.com"}
	techDomains    = []string{"americanbanker.com", "bankingdive.com", "finextra.com", "fintechfutures.com", "fis.com", "fiserv.com", "jackhenry.com"}
)

// Set is an ordered, immutable collection of section specs.
type Set struct {
	specs []types.SectionSpec
	index map[types.SectionID]int
}

// NewSet validates specs and returns a Set preserving declaration order.
// IDs must be non-empty and unique; every spec needs a title.
func NewSet(specs []types.SectionSpec) (*Set, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("section set is empty")
	}
	s := &Set{
		specs: make([]types.SectionSpec, len(specs)),
		index: make(map[types.SectionID]int, len(specs)),
	}
	for i, spec := range specs {
		if spec.ID == "" {
			return nil, fmt.Errorf("section %d: missing id", i)
		}
		if strings.TrimSpace(spec.Title) == "" {
			return nil, fmt.Errorf("section %s: missing title", spec.ID)
		}
		if _, dup := s.index[spec.ID]; dup {
			return nil, fmt.Errorf("section %s: duplicate id", spec.ID)
		}
		if spec.Query != "" {
			if _, err := template.New("query").Parse(spec.Query); err != nil {
				return nil, fmt.Errorf("section %s: parsing query template: %w", spec.ID, err)
			}
		}
		s.index[spec.ID] = i
		s.specs[i] = spec
	}
	return s, nil
}

// Len returns the number of sections.
func (s *Set) Len() int { return len(s.specs) }

// Specs returns a copy of the specs in declaration order.
func (s *Set) Specs() []types.SectionSpec {
	out := make([]types.SectionSpec, len(s.specs))
	copy(out, s.specs)
	return out
}

// IDs returns the section IDs in declaration order.
func (s *Set) IDs() []types.SectionID {
	ids := make([]types.SectionID, len(s.specs))
	for i, spec := range s.specs {
		ids[i] = spec.ID
	}
	return ids
}

// Lookup returns the spec for id or ErrUnknownSection.
func (s *Set) Lookup(id types.SectionID) (types.SectionSpec, error) {
	i, ok := s.index[id]
	if !ok {
		return types.SectionSpec{}, fmt.Errorf("%w: %q", ErrUnknownSection, id)
	}
	return s.specs[i], nil
}

// Position returns the declaration index of id, or -1.
func (s *Set) Position(id types.SectionID) int {
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}

// Subset returns a set with only the listed sections, in the order given.
// An id outside s is reported as ErrUnknownSection.
func (s *Set) Subset(ids []types.SectionID) (*Set, error) {
	specs := make([]types.SectionSpec, 0, len(ids))
	for _, id := range ids {
		spec, err := s.Lookup(id)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return NewSet(specs)
}

// Default returns the canonical five-section set.
func Default() *Set {
	s, err := NewSet(canonical())
	if err != nil {
		panic(err)
	}
	return s
}

func canonical() []types.SectionSpec {
	return []types.SectionSpec{
		{
			ID:      BusinessOverview,
			Title:   "Account Business Overview",
			Persona: "Lead Financial Analyst",
			Focus:   "Fundamental identity and regulatory posture of {{.Target}}.",
			Requirements: []string{
				"Exact legal entity name and FDIC Certificate details.",
				"Scalability metrics: most recent fiscal year Assets, Deposits, and Loans.",
				"Regulatory signals: Primary regulator and charter classification.",
			},
			Query:   "{{.Target}} annual report 10-K total assets deposits loans FDIC call report",
			Domains: financeDomains,
		},
		{
			ID:      KeyInitiatives,
			Title:   "Key Business Initiatives",
			Persona: "Strategic Strategy Principal",
			Focus:   "Operational optimization and strategic catalysts at {{.Target}}.",
			Requirements: []string{
				"Profitability levers: Net interest margin and efficiency goals.",
				"Growth vectors: M&A activity and footprint expansion.",
				"Modernization: Information Services and digital delivery mandates.",
			},
		},
		{
			ID:      TechLandscape,
			Title:   "Account Tech Landscape",
			Persona: "Chief Technology Architect",
			Focus:   "Infrastructure, partners, and technical ecosystems at {{.Target}}.",
			Requirements: []string{
				"Core Digital: Online Banking and Mobile Deposit platforms.",
				"Treasury Engine: Positive Pay, ACH controls, and RDC.",
				"Partner Edge: Integrations with Elan, Autobooks, and Celero.",
			},
			Query:   "{{.Target}} core banking platform Fiserv Jack Henry FIS digital banking vendor",
			Domains: techDomains,
		},
		{
			ID:      Stakeholders,
			Title:   "Relationship & Stakeholders",
			Persona: "Executive Intelligence Lead",
			Focus:   "Hierarchy and governance structure of {{.Target}}.",
			Requirements: []string{
				"C-Suite alignment: CEO, CIO, and CCBO focus areas.",
				"Board Governance: Key committees (Audit, Compliance).",
				"Influence map: Key decision-makers for partner-led work.",
			},
		},
		{
			ID:      StrategicNextSteps,
			Title:   "Strategic Next Steps",
			Persona: "Solutions Director",
			Focus:   "Actionable roadmap for partner alignment with {{.Target}}.",
			Requirements: []string{
				"Friction points: Identification of manual workflow bottlenecks.",
				"Playbooks: Repeatable integration and automation opportunities.",
				"Engagement: 30-day tactical hooks for senior stakeholders.",
			},
		},
	}
}

// setFile is the on-disk shape of a custom section set.
type setFile struct {
	Sections []types.SectionSpec `yaml:"sections"`
}

// Load reads a YAML section set from path.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sections file: %w", err)
	}
	var f setFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing sections file %s: %w", path, err)
	}
	set, err := NewSet(f.Sections)
	if err != nil {
		return nil, fmt.Errorf("sections file %s: %w", path, err)
	}
	return set, nil
}

// LoadOrDefault loads path when non-empty and returns the canonical set otherwise.
func LoadOrDefault(path string) (*Set, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Marshal renders the set as YAML in the same shape Load accepts.
func (s *Set) Marshal() ([]byte, error) {
	return yaml.Marshal(setFile{Sections: s.specs})
}

// templateData is the value substituted into section templates.
type templateData struct {
	Target string
	Title  string
}

// Query builds the search query for spec and target. Sections without a
// query template search for "<target> <title> 2024 2025".
func Query(spec types.SectionSpec, target string) string {
	if spec.Query == "" {
		return fmt.Sprintf("%s %s 2024 2025", target, spec.Title)
	}
	out, err := render(spec.Query, templateData{Target: target, Title: spec.Title})
	if err != nil {
		return fmt.Sprintf("%s %s 2024 2025", target, spec.Title)
	}
	return out
}

func render(tmpl string, data templateData) (string, error) {
	t, err := template.New("section").Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
