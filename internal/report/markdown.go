package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/nao1215/packmap/internal/framework"
	"github.com/nao1215/packmap/internal/model"
)

// DefaultRuleDocsBaseURL is where AWS documents each managed Config rule.
const DefaultRuleDocsBaseURL = "https://docs.aws.amazon.com/config/latest/developerguide/"

// ManualProcessMarker replaces the rule documentation link for rows that are
// manual process checks rather than AWS Config rules.
const ManualProcessMarker = "Manual process: no AWS Config rule automates this check."

// MarkdownWriter renders the mapping document.
//
// For each config rule it emits a heading, a link to the rule documentation
// (or ManualProcessMarker), a guidance section taken from the first control
// reference, and a bullet list of every control reference with its link.
type MarkdownWriter struct {
	baseWriter

	registry        *framework.Registry
	ruleDocsBaseURL string
	coverageTable   bool
}

// MarkdownOption configures a MarkdownWriter.
type MarkdownOption func(*MarkdownWriter)

// WithRegistry sets the registry used for framework display names.
func WithRegistry(r *framework.Registry) MarkdownOption {
	return func(w *MarkdownWriter) {
		w.registry = r
	}
}

// WithRuleDocsBaseURL sets the base URL of rule documentation pages.
func WithRuleDocsBaseURL(u string) MarkdownOption {
	return func(w *MarkdownWriter) {
		w.ruleDocsBaseURL = u
	}
}

// WithCoverageTable adds a per-framework coverage table after the title.
func WithCoverageTable(enabled bool) MarkdownOption {
	return func(w *MarkdownWriter) {
		w.coverageTable = enabled
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter:      newBaseWriter(output),
		ruleDocsBaseURL: DefaultRuleDocsBaseURL,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.registry == nil {
		w.registry = framework.DefaultRegistry()
	}
	return w
}

// Write renders doc in Markdown format.
func (w *MarkdownWriter) Write(doc *Document) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, doc)

	if w.coverageTable {
		w.writeCoverage(md, doc)
	}

	for _, entry := range doc.Entries {
		w.writeEntry(md, entry)
	}

	return len(md.String()), md.Build()
}

// writeHeader writes the document title and license notice.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, doc *Document) {
	md.H1(fmt.Sprintf("AWS Config Compliance Mappings (%s)", doc.Version.CreationDate.Format("2006-01-02")))
	md.PlainText("This content is generated, sourced from public AWS documentation which is Creative Commons licensed.")
	md.PlainText("")
}

// writeCoverage writes the number of rules and controls per framework.
func (w *MarkdownWriter) writeCoverage(md *markdown.Markdown, doc *Document) {
	rules := make(map[string]map[string]bool)
	controls := make(map[string]int)
	for _, entry := range doc.Entries {
		for _, c := range entry.Controls {
			if rules[c.FrameworkID] == nil {
				rules[c.FrameworkID] = make(map[string]bool)
			}
			rules[c.FrameworkID][entry.ConfigRuleName] = true
			controls[c.FrameworkID]++
		}
	}

	rows := make([][]string, 0, w.registry.Len())
	for _, fw := range w.registry.All() {
		if controls[fw.ID] == 0 {
			continue
		}
		rows = append(rows, []string{
			fw.DisplayName,
			strconv.Itoa(len(rules[fw.ID])),
			strconv.Itoa(controls[fw.ID]),
		})
	}
	if len(rows) == 0 {
		return
	}

	md.H2("Framework Coverage")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Framework", "Config Rules", "Controls"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeEntry writes the section of one config rule.
func (w *MarkdownWriter) writeEntry(md *markdown.Markdown, entry model.ConfigRuleEntry) {
	md.H2(entry.ConfigRuleName)
	md.PlainText("")

	if model.IsManualProcessRule(entry.ConfigRuleName) {
		md.PlainText(ManualProcessMarker)
	} else {
		md.PlainText("See also " + markdown.Link("AWS docs for rule", w.ruleDocsURL(entry.ConfigRuleName)))
	}
	md.PlainText("")

	md.H3("Guidance")
	md.PlainText("")
	md.PlainText(entry.Guidance())
	md.PlainText("")

	md.H3("Applicable Security Controls")
	md.PlainText("")
	items := make([]string, 0, len(entry.Controls))
	for _, c := range entry.Controls {
		items = append(items, w.controlItem(c))
	}
	if len(items) > 0 {
		md.BulletList(items...)
	}
	md.PlainText("")
}

// Scraped text may contain Markdown link syntax. markdown.Link does not
// escape its arguments.
var (
	linkTextEscaper  = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`)
	plainTextEscaper = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`, `(`, `\(`, `)`, `\)`)
)

// controlItem formats one bullet: "[Display Name - ID](link) (description)".
func (w *MarkdownWriter) controlItem(c model.ControlReference) string {
	text := linkTextEscaper.Replace(w.registry.DisplayName(c.FrameworkID) + " - " + c.ControlID)
	item := markdown.Link(text, c.Link)
	if c.Description != "" {
		item += " (" + plainTextEscaper.Replace(c.Description) + ")"
	}
	return item
}

// ruleDocsURL returns the documentation page of a managed rule.
func (w *MarkdownWriter) ruleDocsURL(rule string) string {
	return framework.PageURL(w.ruleDocsBaseURL, rule)
}
