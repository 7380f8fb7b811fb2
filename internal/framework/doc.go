// Package framework holds the registry of supported security frameworks and
// the strategies that turn a raw control identifier into a canonical reference
// link.
//
// Every AWS Config conformance pack maps AWS Config rules to the controls of
// one external framework (CIS, NIST 800-53/800-171/800-172, CMMC, FedRAMP,
// AWS Well-Architected). Each framework family writes its control IDs in its
// own grammar:
//
//   - Static link family: the control ID is ignored and a fixed URL is returned.
//   - CIS Critical Security Controls v8: "<safeguard>.<sub>", e.g. "12.2".
//   - NIST 800-171 rev 2 and CMMC 2.0: "<a>.<b>.<c>", CMMC IDs carry a
//     "DD.L#-" domain/level prefix, e.g. "AC.L2-3.1.3".
//   - NIST 800-53 rev 5 and FedRAMP: "<family>-<id>" with optional
//     enhancement suffixes, e.g. "IR-4(1)" or "CA-7(a)(b)".
//
// Parsing is pure and deterministic. IDs that do not match the grammar of their
// family produce a *MalformedControlIDError; nothing is guessed.
//
// # Usage
//
//	reg := framework.DefaultRegistry()
//	link, err := reg.Resolve("operational-best-practices-for-nist_800-171", "3.1.3")
//
// Adding a framework means adding one entry to DefaultRegistry and, when its
// control grammar is new, one Resolver implementation.
package framework
