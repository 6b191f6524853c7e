package scene

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// Encode writes n and its subtree as XML. Attributes come out in assignment
// order after class; inline styles are folded into one style attribute.
func Encode(w io.Writer, n *Node) error {
	bw := bufio.NewWriter(w)
	if err := encode(bw, n); err != nil {
		return err
	}
	return bw.Flush()
}

// Marshal returns the XML encoding of n.
func Marshal(n *Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(w *bufio.Writer, n *Node) error {
	w.WriteByte('<')
	w.WriteString(n.Tag)
	if len(n.Classes) > 0 {
		if err := writeAttr(w, "class", strings.Join(n.Classes, " ")); err != nil {
			return err
		}
	}
	for _, a := range n.attrs {
		if err := writeAttr(w, a.Name, a.Value); err != nil {
			return err
		}
	}
	if len(n.styles) > 0 {
		var sb strings.Builder
		for i, s := range n.styles {
			if i > 0 {
				sb.WriteByte(';')
			}
			sb.WriteString(s.Name)
			sb.WriteByte(':')
			sb.WriteString(s.Value)
		}
		if err := writeAttr(w, "style", sb.String()); err != nil {
			return err
		}
	}

	if n.Text == "" && len(n.Children) == 0 {
		_, err := w.WriteString("/>")
		return err
	}
	w.WriteByte('>')
	if n.Text != "" {
		if err := xml.EscapeText(w, []byte(n.Text)); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := encode(w, c); err != nil {
			return err
		}
	}
	w.WriteString("</")
	w.WriteString(n.Tag)
	return w.WriteByte('>')
}

func writeAttr(w *bufio.Writer, name, value string) error {
	w.WriteByte(' ')
	w.WriteString(name)
	w.WriteString(`="`)
	if err := xml.EscapeText(w, []byte(value)); err != nil {
		return err
	}
	return w.WriteByte('"')
}
