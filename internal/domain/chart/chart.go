// Package chart draws a plot into a render target and applies highlight
// commands to the drawn document.
//
// Render depends only on its arguments: everything a draw needs is passed in
// and everything it produces comes back in RenderedState. Nothing is kept
// between calls. The document in a RenderedState is shared, not copied.
package chart

import (
	"github.com/okian/pacechart/internal/domain/highlight"
	"github.com/okian/pacechart/internal/domain/model"
	"github.com/okian/pacechart/internal/domain/normalize"
	"github.com/okian/pacechart/internal/domain/plot"
	"github.com/okian/pacechart/internal/render/scene"
)

// Target is where a chart is drawn.
type Target interface {
	// Width is the current container width in pixels.
	Width() float64
	// Render replaces the displayed document.
	Render(doc *scene.Node) error
}

// RenderedState is the result of one draw. A redraw replaces it wholesale.
type RenderedState struct {
	Plot      *plot.Plot
	Document  *scene.Node
	Highlight highlight.State
	// Commands are the commands already applied to Document for the
	// default highlight; clients that mirror the document replay them.
	Commands []highlight.Command
}

// Render draws raw into target. A configuration error is returned before the
// target is touched, so a failed draw never leaves a partial chart.
func Render(raw *model.RawSeriesMap, resolver normalize.Resolver, opts plot.Options, target Target) (RenderedState, error) {
	p, err := plot.Build(raw, resolver, opts, target.Width())
	if err != nil {
		return RenderedState{}, err
	}

	doc := Scene(p)
	state, cmds := highlight.Default(p)
	Apply(doc, cmds)

	if err := target.Render(doc); err != nil {
		return RenderedState{}, err
	}
	return RenderedState{Plot: p, Document: doc, Highlight: state, Commands: cmds}, nil
}

// Pointer feeds one pointer event to the highlight controller and applies the
// resulting commands to the drawn document. The document is edited in place,
// so every copy of rs sees the new highlight; only the returned state carries
// the matching Highlight.
func (rs RenderedState) Pointer(ptr highlight.Pointer) (RenderedState, []highlight.Command) {
	if rs.Plot == nil {
		return rs, nil
	}
	next, cmds := highlight.HandlePointer(rs.Plot, rs.Highlight, ptr)
	if rs.Document != nil {
		Apply(rs.Document, cmds)
	}
	rs.Highlight = next
	return rs, cmds
}
