package extract

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultContainerClass is the CSS class of the element wrapping the mapping
// table on AWS documentation pages.
const DefaultContainerClass = "table-contents"

// ParseTable parses an HTML document and returns the rows of the first table
// inside the first element carrying containerClass. When containerClass is
// empty the first table of the document is used.
//
// A row that contains <th> cells is a header row made of those cells only;
// any other row is a data row made of its <td> cells.
func ParseTable(content io.Reader, containerClass string) ([]Row, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	root := doc
	if containerClass != "" {
		root = findFirst(doc, func(n *html.Node) bool {
			return n.Type == html.ElementNode && hasClass(n, containerClass)
		})
		if root == nil {
			return nil, ErrNoTable
		}
	}

	table := findFirst(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Table
	})
	if table == nil {
		return nil, ErrNoTable
	}

	var rows []Row
	for _, tr := range collectRows(table) {
		headers := collectCells(tr, atom.Th)
		if len(headers) > 0 {
			rows = append(rows, headers)
			continue
		}
		rows = append(rows, collectCells(tr, atom.Td))
	}
	if len(rows) == 0 {
		return nil, ErrNoTable
	}
	return rows, nil
}

// findFirst returns the first node in document order (including n) matching match.
func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

// collectRows returns the <tr> elements of table, skipping nested tables.
func collectRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Table:
				// nested table, not part of this one
			case atom.Tr:
				rows = append(rows, c)
			default:
				walk(c)
			}
		}
	}
	walk(table)
	return rows
}

// collectCells returns the cells of tr with the given tag.
func collectCells(tr *html.Node, tag atom.Atom) Row {
	var row Row
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || c.DataAtom == atom.Table {
				continue
			}
			if c.DataAtom == tag {
				row = append(row, Cell{Text: innerText(c), Header: tag == atom.Th})
				continue
			}
			walk(c)
		}
	}
	walk(tr)
	return row
}

// innerText returns the text content of n with whitespace runs collapsed.
// Block level elements and <br> are treated as word breaks.
func innerText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style:
				return
			case atom.Br, atom.P, atom.Div, atom.Li:
				sb.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// hasClass reports whether n's class attribute contains class as a token.
func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}
