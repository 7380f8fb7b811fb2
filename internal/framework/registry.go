package framework

import (
	"fmt"
	"strings"
)

// Framework is one supported conformance pack.
type Framework struct {
	// ID is the conformance pack slug used by the AWS documentation, e.g.
	// "operational-best-practices-for-nist_800-171".
	ID string

	// DisplayName is the human readable framework name.
	DisplayName string

	// Resolver turns control IDs of this framework into reference links.
	Resolver Resolver
}

// Static reference pages for frameworks without per-control links.
const (
	waReliabilityURL = "https://docs.aws.amazon.com/wellarchitected/latest/reliability-pillar/welcome.html"
	waSecurityURL    = "https://docs.aws.amazon.com/wellarchitected/latest/security-pillar/welcome.html"
	cisBenchmarkURL  = "https://www.cisecurity.org/benchmark/amazon_web_services"
	cisTop20URL      = "https://www.cisecurity.org/controls/cis-controls-list"
	nist800172URL    = "https://csrc.nist.gov/pubs/sp/800/172/final"
)

// defaultFrameworks is the built-in registry content in registration order.
// The order drives aggregation and default output ordering.
var defaultFrameworks = []Framework{
	{ID: "operational-best-practices-for-wa-Reliability-Pillar", DisplayName: "AWS Well Architected Reliability Pillar", Resolver: StaticLink{URL: waReliabilityURL}},
	{ID: "operational-best-practices-for-wa-Security-Pillar", DisplayName: "AWS Well Architected Security Pillar", Resolver: StaticLink{URL: waSecurityURL}},
	{ID: "operational-best-practices-for-cis_aws_benchmark_level_1", DisplayName: "CIS AWS Benchmark Level 1", Resolver: StaticLink{URL: cisBenchmarkURL}},
	{ID: "operational-best-practices-for-cis_aws_benchmark_level_2", DisplayName: "CIS AWS Benchmark Level 2", Resolver: StaticLink{URL: cisBenchmarkURL}},
	{ID: "operational-best-practices-for-cis-critical-security-controls-v8", DisplayName: "CIS Critical Controls v8", Resolver: CISCSCv8{}},
	{ID: "operational-best-practices-for-cis-critical-security-controls-v8-ig2", DisplayName: "CIS Critical Controls v8 ig2", Resolver: CISCSCv8{}},
	{ID: "operational-best-practices-for-cis-critical-security-controls-v8-ig3", DisplayName: "CIS Critical Controls v8 ig3", Resolver: CISCSCv8{}},
	{ID: "operational-best-practices-for-cis_top_20", DisplayName: "CIS Top 20", Resolver: StaticLink{URL: cisTop20URL}},
	{ID: "operational-best-practices-for-cmmc_2.0_level_1", DisplayName: "CMMC 2.0 Level 1", Resolver: NIST800171{CMMC: true}},
	{ID: "operational-best-practices-for-cmmc_2.0_level_2", DisplayName: "CMMC 2.0 Level 2", Resolver: NIST800171{CMMC: true}},
	{ID: "operational-best-practices-for-nist_800-171", DisplayName: "NIST 800-171 (rev2)", Resolver: NIST800171{}},
	{ID: "operational-best-practices-for-fedramp-low", DisplayName: "FedRAMP Low", Resolver: NIST80053R5{}},
	{ID: "operational-best-practices-for-fedramp-moderate", DisplayName: "FedRAMP Moderate", Resolver: NIST80053R5{}},
	{ID: "operational-best-practices-for-fedramp-high-part-1", DisplayName: "FedRAMP High", Resolver: NIST80053R5{}},
	{ID: "operational-best-practices-for-fedramp-high-part-2", DisplayName: "FedRAMP High", Resolver: NIST80053R5{}},
	{ID: "operational-best-practices-for-nist-800-53_rev_5", DisplayName: "NIST 800-53 rev 5", Resolver: NIST80053R5{}},
	{ID: "operational-best-practices-for-nist_800-172", DisplayName: "NIST 800-172", Resolver: StaticLink{URL: nist800172URL}},
}

// Registry is an immutable, ordered set of frameworks.
// It is safe for concurrent use because it is never mutated after construction.
type Registry struct {
	frameworks []Framework
	index      map[string]int
}

// NewRegistry builds a registry from the given frameworks, keeping their order.
// It fails if an ID is empty, repeated, or has no resolver.
func NewRegistry(frameworks ...Framework) (*Registry, error) {
	r := &Registry{
		frameworks: make([]Framework, 0, len(frameworks)),
		index:      make(map[string]int, len(frameworks)),
	}
	for _, fw := range frameworks {
		if fw.ID == "" {
			return nil, fmt.Errorf("framework with display name %q has an empty id", fw.DisplayName)
		}
		if fw.Resolver == nil {
			return nil, fmt.Errorf("framework %q has no resolver", fw.ID)
		}
		if _, ok := r.index[fw.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFramework, fw.ID)
		}
		r.index[fw.ID] = len(r.frameworks)
		r.frameworks = append(r.frameworks, fw)
	}
	return r, nil
}

// DefaultRegistry returns the registry of all built-in frameworks.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(defaultFrameworks...)
	if err != nil {
		// defaultFrameworks is static; a failure here is a programming error.
		panic(err)
	}
	return r
}

// Lookup returns the framework registered under id.
func (r *Registry) Lookup(id string) (Framework, error) {
	i, ok := r.index[id]
	if !ok {
		return Framework{}, &UnknownFrameworkError{ID: id}
	}
	return r.frameworks[i], nil
}

// All returns every framework in registration order.
// The returned slice is a copy.
func (r *Registry) All() []Framework {
	out := make([]Framework, len(r.frameworks))
	copy(out, r.frameworks)
	return out
}

// IDs returns every framework ID in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.frameworks))
	for i, fw := range r.frameworks {
		ids[i] = fw.ID
	}
	return ids
}

// Len returns the number of registered frameworks.
func (r *Registry) Len() int {
	return len(r.frameworks)
}

// Select returns a registry restricted to the given IDs, keeping registration
// order. An empty selection returns r itself.
func (r *Registry) Select(ids []string) (*Registry, error) {
	if len(ids) == 0 {
		return r, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, err := r.Lookup(id); err != nil {
			return nil, err
		}
		want[id] = true
	}
	selected := make([]Framework, 0, len(ids))
	for _, fw := range r.frameworks {
		if want[fw.ID] {
			selected = append(selected, fw)
		}
	}
	return NewRegistry(selected...)
}

// Resolve returns the reference link for controlID within frameworkID.
func (r *Registry) Resolve(frameworkID, controlID string) (string, error) {
	fw, err := r.Lookup(frameworkID)
	if err != nil {
		return "", err
	}
	return fw.Resolver.Resolve(frameworkID, controlID)
}

// DisplayName returns the display name for id, or id itself when unknown.
func (r *Registry) DisplayName(id string) string {
	fw, err := r.Lookup(id)
	if err != nil {
		return id
	}
	return fw.DisplayName
}

// PageURL returns the conformance pack documentation page for id under baseURL.
func PageURL(baseURL, id string) string {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL + id + ".html"
}

// Family returns the control ID grammar family of id.
func (r *Registry) Family(id string) (Family, error) {
	fw, err := r.Lookup(id)
	if err != nil {
		return "", err
	}
	return fw.Resolver.Family(), nil
}
