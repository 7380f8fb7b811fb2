package framework

import (
	"fmt"
	"regexp"
	"strings"
)

// Family identifies a group of frameworks that share a control ID grammar.
type Family string

const (
	// FamilyStatic frameworks link every control to one fixed page.
	FamilyStatic Family = "static"
	// FamilyCISCSCv8 is the CIS Critical Security Controls v8 grammar.
	FamilyCISCSCv8 Family = "cis-csc-v8"
	// FamilyNIST800171 is the NIST SP 800-171 rev 2 grammar (also used by CMMC 2.0).
	FamilyNIST800171 Family = "nist-800-171"
	// FamilyNIST80053R5 is the NIST SP 800-53 rev 5 grammar (also used by FedRAMP).
	FamilyNIST80053R5 Family = "nist-800-53-r5"
)

// Reference link roots.
const (
	cisCSCv8BaseURL    = "https://csf.tools/reference/critical-security-controls/version-8/"
	nist800171BaseURL  = "https://csf.tools/reference/nist-sp-800-171/r2/"
	nist80053R5BaseURL = "https://csf.tools/reference/nist-sp-800-53/r5/"
)

// Resolver converts a raw control ID into a canonical reference URL.
// The framework ID is passed through so errors can name it.
type Resolver interface {
	Resolve(frameworkID, controlID string) (string, error)
	Family() Family
}

// StaticLink ignores the control ID and always returns URL.
type StaticLink struct {
	URL string
}

// Resolve returns the fixed URL. It never fails.
func (s StaticLink) Resolve(_, _ string) (string, error) {
	return s.URL, nil
}

// Family returns FamilyStatic.
func (s StaticLink) Family() Family {
	return FamilyStatic
}

// CISCSCv8 resolves CIS Critical Security Controls v8 safeguards ("12.2").
type CISCSCv8 struct{}

// Resolve splits the ID into safeguard and sub-safeguard.
func (CISCSCv8) Resolve(frameworkID, controlID string) (string, error) {
	parts := strings.Split(controlID, ".")
	if len(parts) != 2 {
		return "", malformed(frameworkID, controlID,
			"expected <safeguard>.<sub>, got %d dot-separated segments", len(parts))
	}
	return fmt.Sprintf("%scsc-%s/csc-%s-%s/", cisCSCv8BaseURL, parts[0], parts[0], parts[1]), nil
}

// Family returns FamilyCISCSCv8.
func (CISCSCv8) Family() Family {
	return FamilyCISCSCv8
}

// cmmcPrefix matches the CMMC 2.0 practice prefix "DD.L#-" where DD is the
// two letter domain and # the level.
var cmmcPrefix = regexp.MustCompile(`^[A-Za-z]{2}\.L[0-9]-`)

// NIST800171 resolves NIST SP 800-171 rev 2 requirements ("3.1.3").
// CMMC 2.0 practices reference the same requirements behind a domain/level
// prefix ("AC.L2-3.1.3"); set CMMC to strip it.
type NIST800171 struct {
	CMMC bool
}

// Resolve validates and strips the CMMC prefix when configured, then expects
// exactly three dot-separated segments.
func (n NIST800171) Resolve(frameworkID, controlID string) (string, error) {
	requirement := controlID
	if n.CMMC {
		prefix := cmmcPrefix.FindString(controlID)
		if prefix == "" {
			return "", malformed(frameworkID, controlID,
				"expected CMMC practice prefix DD.L#- before the requirement number")
		}
		requirement = controlID[len(prefix):]
	}

	parts := strings.Split(requirement, ".")
	if len(parts) != 3 {
		return "", malformed(frameworkID, controlID,
			"expected <a>.<b>.<c> requirement, got %d dot-separated segments in %q", len(parts), requirement)
	}
	return fmt.Sprintf("%s%s-%s/%s-%s-%s/", nist800171BaseURL,
		parts[0], parts[1], parts[0], parts[1], parts[2]), nil
}

// Family returns FamilyNIST800171.
func (NIST800171) Family() Family {
	return FamilyNIST800171
}

// NIST80053R5 resolves NIST SP 800-53 rev 5 controls. Enhancements and
// sections ("IR-4(1)", "CA-7(a)(b)") are not individually linkable, so only
// the parent control is used.
type NIST80053R5 struct{}

// Resolve removes whitespace, drops everything from the first "(" and expects
// "<family>-<id>". The family is lower-cased; the id is passed through.
func (NIST80053R5) Resolve(frameworkID, controlID string) (string, error) {
	compact := strings.Join(strings.Fields(controlID), "")
	if i := strings.IndexByte(compact, '('); i >= 0 {
		compact = compact[:i]
	}

	parts := strings.Split(compact, "-")
	if len(parts) != 2 {
		return "", malformed(frameworkID, controlID,
			"expected <family>-<id>, got %d dash-separated segments", len(parts))
	}
	family := strings.ToLower(parts[0])
	return fmt.Sprintf("%s%s/%s-%s/", nist80053R5BaseURL, family, family, parts[1]), nil
}

// Family returns FamilyNIST80053R5.
func (NIST80053R5) Family() Family {
	return FamilyNIST80053R5
}
