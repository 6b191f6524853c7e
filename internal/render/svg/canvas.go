// Package svg is the SVG render target: it reports a container width and
// keeps the last document handed to it.
package svg

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/okian/pacechart/internal/render/scene"
)

// ErrEmpty is returned when encoding a canvas that has not been rendered to.
var ErrEmpty = errors.New("svg: nothing rendered")

// Namespace is the SVG XML namespace.
const Namespace = "http://www.w3.org/2000/svg"

// Canvas is safe for concurrent use.
type Canvas struct {
	mu    sync.RWMutex
	width float64
	doc   *scene.Node
	draws int
}

// NewCanvas returns a canvas reporting the given container width.
func NewCanvas(width float64) *Canvas {
	return &Canvas{width: width}
}

// Width is the container width in pixels.
func (c *Canvas) Width() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.width
}

// Resize changes the reported width. The current document is kept until the
// next Render.
func (c *Canvas) Resize(width float64) {
	c.mu.Lock()
	c.width = width
	c.mu.Unlock()
}

// Render replaces the document.
func (c *Canvas) Render(doc *scene.Node) error {
	if doc == nil {
		return ErrEmpty
	}
	if _, ok := doc.Get("xmlns"); !ok && doc.Tag == "svg" {
		doc.Attr("xmlns", Namespace)
	}
	c.mu.Lock()
	c.doc = doc
	c.draws++
	c.mu.Unlock()
	return nil
}

// Document returns the last rendered document, nil before the first Render.
func (c *Canvas) Document() *scene.Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.doc
}

// Draws counts Render calls.
func (c *Canvas) Draws() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.draws
}

// Update runs fn on the current document under the canvas lock, for
// in-place changes such as highlight commands.
func (c *Canvas) Update(fn func(doc *scene.Node)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return ErrEmpty
	}
	fn(c.doc)
	return nil
}

// WriteTo encodes the current document to w.
func (c *Canvas) WriteTo(w io.Writer) (int64, error) {
	b, err := c.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

// Bytes returns the encoded current document.
func (c *Canvas) Bytes() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.doc == nil {
		return nil, ErrEmpty
	}
	var buf bytes.Buffer
	if err := scene.Encode(&buf, c.doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
