package htmlutil

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// CellText returns the visible text of a table cell with non-breaking
// spaces removed and surrounding whitespace trimmed. The target portal
// pads empty cells with &nbsp; so plain text extraction is never clean.
func CellText(sel *goquery.Selection) string {
	var text strings.Builder
	for _, node := range sel.Nodes {
		text.WriteString(GetText(node))
	}
	cleaned := strings.ReplaceAll(text.String(), " ", "")
	return strings.TrimSpace(cleaned)
}

// RowCells returns the cleaned text of every <td> in a table row,
// in document order.
func RowCells(row *goquery.Selection) []string {
	var cells []string
	row.Find("td").Each(func(_ int, td *goquery.Selection) {
		cells = append(cells, CellText(td))
	})
	return cells
}
