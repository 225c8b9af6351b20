// Package pdf lays out notes markup as a PDF document.
package pdf

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Kind is the layout role of a block.
type Kind int

const (
	Paragraph Kind = iota
	Heading
	Bullet
	Numbered
	Quote
	Code
	Rule
)

// Block is one laid out unit of the document.
type Block struct {
	Kind Kind
	// Level is the heading level for headings and the nesting depth, from
	// zero, for list items.
	Level int
	// Ordinal is the number of a numbered list item.
	Ordinal int
	Text    string
}

// Blocks flattens HTML markup into layout blocks. Unknown elements
// contribute their text.
func Blocks(r io.Reader) ([]Block, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}
	var w walker
	w.walk(doc, 0)
	return w.blocks, nil
}

type walker struct {
	blocks []Block
	loose  strings.Builder
}

func (w *walker) emit(b Block) {
	w.flushLoose()
	if b.Kind != Rule && b.Text == "" {
		return
	}
	w.blocks = append(w.blocks, b)
}

// flushLoose turns text found outside any block element into a paragraph.
func (w *walker) flushLoose() {
	text := normalize(w.loose.String())
	w.loose.Reset()
	if text != "" {
		w.blocks = append(w.blocks, Block{Kind: Paragraph, Text: text})
	}
}

func (w *walker) walk(n *html.Node, depth int) {
	switch n.Type {
	case html.TextNode:
		w.loose.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			w.emit(Block{Kind: Heading, Level: int(n.Data[1] - '0'), Text: inlineText(n)})
			return
		case atom.P:
			w.emit(Block{Kind: Paragraph, Text: inlineText(n)})
			return
		case atom.Ul, atom.Ol:
			w.list(n, depth)
			return
		case atom.Blockquote:
			w.emit(Block{Kind: Quote, Text: inlineText(n)})
			return
		case atom.Pre:
			w.emit(Block{Kind: Code, Text: strings.TrimRight(rawText(n), "\n")})
			return
		case atom.Hr:
			w.emit(Block{Kind: Rule})
			return
		case atom.Tr:
			w.emit(Block{Kind: Paragraph, Text: rowText(n)})
			return
		case atom.Script, atom.Style, atom.Head:
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, depth)
	}
	if n.Type == html.DocumentNode {
		w.flushLoose()
	}
}

func (w *walker) list(n *html.Node, depth int) {
	ordinal := 1
	if n.DataAtom == atom.Ol {
		for _, a := range n.Attr {
			if a.Key != "start" {
				continue
			}
			if v, err := strconv.Atoi(a.Val); err == nil {
				ordinal = v
			}
		}
	}
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}
		b := Block{Kind: Bullet, Level: depth, Text: inlineText(li)}
		if n.DataAtom == atom.Ol {
			b.Kind = Numbered
			b.Ordinal = ordinal
			ordinal++
		}
		w.emit(b)
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.DataAtom == atom.Ul || c.DataAtom == atom.Ol) {
				w.list(c, depth+1)
			}
		}
	}
}

// inlineText collects the normalized text of n, skipping nested lists.
func inlineText(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type == html.TextNode:
				b.WriteString(c.Data)
			case c.Type == html.ElementNode && (c.DataAtom == atom.Ul || c.DataAtom == atom.Ol):
			case c.Type == html.ElementNode && c.DataAtom == atom.Br:
				b.WriteByte(' ')
			case c.Type == html.ElementNode:
				if c.DataAtom == atom.P && b.Len() > 0 {
					b.WriteByte(' ')
				}
				collect(c)
			}
		}
	}
	collect(n)
	return normalize(b.String())
}

func rawText(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}

func rowText(tr *html.Node) string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			cells = append(cells, inlineText(c))
		}
	}
	return strings.Join(cells, " | ")
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
