package search

import "strings"

// Category labels used outside the NIST 800-53 families.
const (
	CategoryWellArchitected = "AWS Well-Architected"
	CategoryNIST            = "NIST"
)

// nistFamilies maps NIST SP 800-53 family prefixes to their names.
var nistFamilies = map[string]string{
	"AC": "Access Control",
	"AU": "Audit and Accountability",
	"CA": "Assessment, Authorization, and Monitoring",
	"CM": "Configuration Management",
	"CP": "Contingency Planning",
	"IA": "Identification and Authentication",
	"IR": "Incident Response",
	"MA": "Maintenance",
	"RA": "Risk Assessment",
	"SC": "System and Communications Protection",
	"SI": "System and Information Integrity",
}

// Category returns the control category of a control reference.
//
// Well-Architected pillar frameworks map to CategoryWellArchitected. Control
// IDs that start with a NIST 800-53 family prefix ("IR-4", "AC.L2-3.1.3")
// map to the family name. Remaining NIST frameworks map to CategoryNIST and
// everything else to the empty string.
func Category(frameworkID, controlID string) string {
	if strings.Contains(frameworkID, "Pillar") {
		return CategoryWellArchitected
	}
	if name, ok := nistFamilies[familyPrefix(controlID)]; ok {
		return name
	}
	if strings.Contains(strings.ToLower(frameworkID), "nist") {
		return CategoryNIST
	}
	return ""
}

// Categories returns every category label Category can produce.
func Categories() []string {
	out := []string{CategoryWellArchitected}
	for _, prefix := range []string{"AC", "AU", "CA", "CM", "CP", "IA", "IR", "MA", "RA", "SC", "SI"} {
		out = append(out, nistFamilies[prefix])
	}
	return append(out, CategoryNIST)
}

// familyPrefix returns the two letter prefix of id when it is followed by a
// separator or the end of the string.
func familyPrefix(id string) string {
	id = strings.TrimSpace(id)
	if len(id) < 2 {
		return ""
	}
	if len(id) > 2 {
		next := id[2]
		if (next >= 'A' && next <= 'Z') || (next >= 'a' && next <= 'z') {
			return ""
		}
	}
	return strings.ToUpper(id[:2])
}
