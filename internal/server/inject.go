package server

import (
	"bytes"
	_ "embed"
	"net/http"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

//go:embed reload.js
var reloadJS []byte

func handleReloadScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(reloadJS)
}

// InjectReloadScript appends a script tag loading the reload client to the
// body of page. Pages that already load it are returned unchanged.
func InjectReloadScript(page []byte) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	var body *html.Node
	injected := false
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Body:
				if body == nil {
					body = n
				}
			case atom.Script:
				for _, attr := range n.Attr {
					if attr.Key == "src" && attr.Val == ReloadScriptPath {
						injected = true
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if injected || body == nil {
		return page, nil
	}

	body.AppendChild(&html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr:     []html.Attribute{{Key: "src", Val: ReloadScriptPath}},
	})

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
