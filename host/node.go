package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/mgomes/luabridge/variant"
)

// Notification codes delivered to scripts through _notification.
const (
	NotificationReady     = 13
	NotificationProcess   = 17
	NotificationPredelete = 1
)

// Node is a named object that owns an ordered list of children.
type Node struct {
	Base
	mu       sync.Mutex
	name     string
	parent   *Node
	children []*Node
}

func NewNode(name string) *Node {
	return &Node{name: name}
}

func (n *Node) ClassName() string { return "Node" }

func (n *Node) Name() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.name
}

func (n *Node) SetName(name string) {
	n.mu.Lock()
	n.name = name
	n.mu.Unlock()
}

func (n *Node) AddChild(child *Node) error {
	if child == n {
		return fmt.Errorf("node %q cannot be its own child", n.Name())
	}
	child.mu.Lock()
	if child.parent != nil {
		child.mu.Unlock()
		return fmt.Errorf("node %q already has a parent", child.name)
	}
	child.parent = n
	child.mu.Unlock()

	n.mu.Lock()
	n.children = append(n.children, child)
	n.mu.Unlock()
	return nil
}

func (n *Node) Children() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*Node(nil), n.children...)
}

func (n *Node) Parent() *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.parent
}

// Free frees the subtree children first, then the node itself.
func (n *Node) Free(ctx context.Context) {
	n.mu.Lock()
	children := n.children
	n.children = nil
	n.mu.Unlock()
	for _, child := range children {
		child.Free(ctx)
	}
	n.Base.Free(ctx)
}

func nodeSelf(self Object) (*Node, error) {
	node, ok := self.(*Node)
	if !ok {
		return nil, fmt.Errorf("expected Node receiver, got %s", self.ClassName())
	}
	return node, nil
}

func nodeArg(args []variant.Value, i int) (*Node, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("missing argument %d", i+1)
	}
	node, ok := args[i].Object().(*Node)
	if !ok {
		return nil, fmt.Errorf("argument %d must be a Node, got %s", i+1, args[i].Kind())
	}
	return node, nil
}

// RegisterNode adds the Node class to db.
func RegisterNode(db *ClassDB) error {
	return db.Register(ClassInfo{
		Name:   "Node",
		Parent: "Object",
		New:    func() Object { return NewNode("") },
		Properties: []Property{
			{
				Name: "name",
				Get:  func(self Object) variant.Value { return variant.NewString(self.(*Node).Name()) },
				Set: func(self Object, value variant.Value) error {
					if value.Kind() != variant.KindString {
						return fmt.Errorf("%w: name must be a String", ErrPropertyValue)
					}
					self.(*Node).SetName(value.String())
					return nil
				},
			},
		},
		Constants: map[string]int64{
			"NOTIFICATION_READY":     NotificationReady,
			"NOTIFICATION_PROCESS":   NotificationProcess,
			"NOTIFICATION_PREDELETE": NotificationPredelete,
		},
		Methods: map[string]MethodFunc{
			"add_child": func(_ context.Context, self Object, args []variant.Value) (variant.Value, error) {
				node, err := nodeSelf(self)
				if err != nil {
					return variant.NewNil(), err
				}
				child, err := nodeArg(args, 0)
				if err != nil {
					return variant.NewNil(), err
				}
				return variant.NewNil(), node.AddChild(child)
			},
			"get_child": func(_ context.Context, self Object, args []variant.Value) (variant.Value, error) {
				node, err := nodeSelf(self)
				if err != nil {
					return variant.NewNil(), err
				}
				if len(args) != 1 {
					return variant.NewNil(), fmt.Errorf("get_child expects 1 argument, got %d", len(args))
				}
				idx, ok := variant.AsIndex(args[0])
				children := node.Children()
				if !ok || idx < 0 || idx >= len(children) {
					return variant.NewObject(nil), nil
				}
				return variant.NewObject(children[idx]), nil
			},
			"get_child_count": func(_ context.Context, self Object, _ []variant.Value) (variant.Value, error) {
				node, err := nodeSelf(self)
				if err != nil {
					return variant.NewNil(), err
				}
				return variant.NewInt(int64(len(node.Children()))), nil
			},
			"get_parent": func(_ context.Context, self Object, _ []variant.Value) (variant.Value, error) {
				node, err := nodeSelf(self)
				if err != nil {
					return variant.NewNil(), err
				}
				if parent := node.Parent(); parent != nil {
					return variant.NewObject(parent), nil
				}
				return variant.NewObject(nil), nil
			},
		},
	})
}

// NewStandardClassDB returns a database with Object, RefCounted and Node.
func NewStandardClassDB() *ClassDB {
	db := NewClassDB()
	if err := RegisterNode(db); err != nil {
		panic(err)
	}
	return db
}
