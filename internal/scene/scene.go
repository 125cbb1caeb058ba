package scene

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/gravitas-games/hexalign/internal/align"
	"github.com/gravitas-games/hexalign/pkg/errors"
	"github.com/gravitas-games/hexalign/pkg/hex"
)

// Vec3 is a local position. Y is height.
type Vec3 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// Plane returns the grid-plane projection of v.
func (v Vec3) Plane() hex.Point { return hex.Point{X: v.X, Y: v.Z} }

// Node is an object in the layout tree.
type Node struct {
	Name     string  `yaml:"name" json:"name"`
	Position Vec3    `yaml:"position" json:"position"`
	Children []*Node `yaml:"children,omitempty" json:"children,omitempty"`
}

// Child returns the immediate child with the given name.
func (n *Node) Child(name string) (*Node, bool) {
	return lo.Find(n.Children, func(c *Node) bool { return c.Name == name })
}

// Scene is a layout document: a forest of nodes and the current selection.
type Scene struct {
	Selected string  `yaml:"selected,omitempty" json:"selected,omitempty"`
	Nodes    []*Node `yaml:"nodes" json:"nodes"`

	mu sync.RWMutex
}

// Load reads a layout document from a YAML file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML layout document.
func Parse(data []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes the layout document to path.
func (s *Scene) Save(path string) error {
	s.mu.RLock()
	data, err := yaml.Marshal(s)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode layout: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write layout file: %w", err)
	}
	return nil
}

func (s *Scene) validate() error {
	var walk func(nodes []*Node, parent string) error
	walk = func(nodes []*Node, parent string) error {
		seen := make(map[string]bool, len(nodes))
		for _, n := range nodes {
			if n == nil || strings.TrimSpace(n.Name) == "" {
				return errors.InvalidArgument("unnamed node under %q", parent)
			}
			if seen[n.Name] {
				return errors.InvalidArgument("duplicate node %q under %q", n.Name, parent)
			}
			seen[n.Name] = true
			if err := walk(n.Children, n.Name); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(s.Nodes, "/")
}

// Find returns a node by slash-separated path ("board/tile_3"). A bare name
// matches the first node with that name in depth-first order.
func (s *Scene) Find(path string) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.find(path)
}

func (s *Scene) find(path string) (*Node, bool) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, false
	}
	if strings.Contains(path, "/") {
		parts := strings.Split(path, "/")
		cur, ok := lo.Find(s.Nodes, func(n *Node) bool { return n.Name == parts[0] })
		for _, p := range parts[1:] {
			if !ok {
				break
			}
			cur, ok = cur.Child(p)
		}
		return cur, ok
	}

	var found *Node
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			if found != nil {
				return
			}
			if n.Name == path {
				found = n
				return
			}
			walk(n.Children)
		}
	}
	walk(s.Nodes)
	return found, found != nil
}

// Select changes the current selection. An empty path clears it.
func (s *Scene) Select(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if path != "" {
		if _, ok := s.find(path); !ok {
			return errors.New(errors.ErrCodeNotFound, "node %q not found", path)
		}
	}
	s.Selected = path
	return nil
}

// SelectedChildren implements align.Host.
func (s *Scene) SelectedChildren(ctx context.Context) ([]align.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Selected == "" {
		return nil, align.ErrNoSelection
	}
	n, ok := s.find(s.Selected)
	if !ok {
		return nil, align.ErrNoSelection
	}
	return lo.Map(n.Children, func(c *Node, _ int) align.Target {
		return align.Target{Handle: c.Name, Position: c.Position.Plane()}
	}), nil
}

// ApplyPosition implements align.Host. The child is placed on the grid
// plane at height zero.
func (s *Scene) ApplyPosition(ctx context.Context, handle string, p hex.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	parent, ok := s.find(s.Selected)
	if !ok {
		return align.ErrNoSelection
	}
	child, ok := parent.Child(handle)
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "node %q has no child %q", parent.Name, handle)
	}
	child.Position = Vec3{X: p.X, Y: 0, Z: p.Y}
	return nil
}

// GenerateOptions configures Generate.
type GenerateOptions struct {
	Name        string
	Orientation hex.Orientation
	Radius      float64
	Rings       int
	Jitter      float64
	Seed        int64
}

// Generate builds a layout with one parent node holding a hexagon of cells,
// each displaced by up to Jitter in x and z. The parent is selected.
func Generate(opts GenerateOptions) *Scene {
	if opts.Name == "" {
		opts.Name = "grid"
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	jitter := func() float64 {
		if opts.Jitter <= 0 {
			return 0
		}
		return (rng.Float64()*2 - 1) * opts.Jitter
	}

	parent := &Node{Name: opts.Name}
	for i, cell := range hex.Disk(hex.Axial{}, opts.Rings) {
		c := hex.AxialToPixel(cell, opts.Orientation, opts.Radius)
		parent.Children = append(parent.Children, &Node{
			Name:     fmt.Sprintf("hex_%03d", i),
			Position: Vec3{X: c.X + jitter(), Z: c.Y + jitter()},
		})
	}
	return &Scene{Selected: opts.Name, Nodes: []*Node{parent}}
}
