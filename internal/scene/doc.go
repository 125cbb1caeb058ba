// Package scene holds an in-memory layout tree that stands in for an
// editor's scene graph. It implements align.Host: the selected node's
// immediate children are the alignment targets.
package scene
