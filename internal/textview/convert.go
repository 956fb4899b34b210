package textview

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"text/tabwriter"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ToText flattens a rendered fragment into plain terminal text. Table rows
// become tab-aligned columns, leave cards become indented blocks and
// definition lists become "label: value" lines.
func ToText(fragment template.HTML) (string, error) {
	nodes, err := parseFragment(string(fragment))
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	for _, n := range nodes {
		writeNode(tw, n)
	}
	if err := tw.Flush(); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n") + "\n", nil
}

func parseFragment(src string) ([]*html.Node, error) {
	trimmed := strings.TrimSpace(src)
	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	if strings.HasPrefix(trimmed, "<tr") {
		context = &html.Node{Type: html.ElementNode, Data: "tbody", DataAtom: atom.Tbody}
	}
	nodes, err := html.ParseFragment(strings.NewReader(trimmed), context)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	return nodes, nil
}

func writeNode(w *tabwriter.Writer, n *html.Node) {
	if n.Type == html.TextNode {
		if text := collapse(n.Data); text != "" {
			fmt.Fprintln(w, text)
		}
		return
	}
	if n.Type != html.ElementNode {
		return
	}

	switch n.DataAtom {
	case atom.Tr:
		cells := make([]string, 0, 5)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
				cells = append(cells, textOf(c))
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t")+"\t")
	case atom.Div:
		if hasClass(n, "leave-card") {
			writeCard(w, n)
			return
		}
		writeChildren(w, n)
	case atom.Dl:
		var label string
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Dt:
				label = textOf(c)
			case atom.Dd:
				fmt.Fprintf(w, "%s:\t%s\n", label, textOf(c))
			}
		}
	case atom.P, atom.H4:
		if text := textOf(n); text != "" {
			fmt.Fprintln(w, text)
		}
	default:
		writeChildren(w, n)
	}
}

func writeChildren(w *tabwriter.Writer, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNode(w, c)
	}
}

func writeCard(w *tabwriter.Writer, n *html.Node) {
	if id := attr(n, "data-leave-id"); id != "" {
		fmt.Fprintf(w, "[%s] ", id)
	}
	first := true
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom == atom.Button {
			continue
		}
		text := textOf(c)
		if text == "" {
			continue
		}
		if first {
			fmt.Fprintln(w, text)
			first = false
			continue
		}
		fmt.Fprintln(w, "    "+text)
	}
	fmt.Fprintln(w)
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Button {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return collapse(b.String())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
