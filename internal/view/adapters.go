package view

import (
	"context"
	"io"

	"github.com/a-h/templ"
	g "maragu.dev/gomponents"
)

// gomponentComponent lets a gomponents node render inside a templ layout.
type gomponentComponent struct {
	node g.Node
}

func (a gomponentComponent) Render(_ context.Context, w io.Writer) error {
	return a.node.Render(w)
}

// FromGomponent wraps node as a templ.Component.
func FromGomponent(node g.Node) templ.Component {
	return gomponentComponent{node: node}
}
