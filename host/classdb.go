package host

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mgomes/luabridge/variant"
)

var (
	ErrClassExists   = errors.New("class already registered")
	ErrUnknownClass  = errors.New("unknown class")
	ErrNotInstanced  = errors.New("class cannot be instantiated")
	ErrPropertyValue = errors.New("invalid property value")
)

// MethodFunc implements a native method. ctx carries the caller's runtime
// session so the method may call back into scripts.
type MethodFunc func(ctx context.Context, self Object, args []variant.Value) (variant.Value, error)

// MethodBind is a registered native method. Binds are created once per class
// and keep a stable identity for the lifetime of the database.
type MethodBind struct {
	Class string
	Name  string
	Fn    MethodFunc
}

func (m *MethodBind) Call(ctx context.Context, self Object, args []variant.Value) (variant.Value, error) {
	return m.Fn(ctx, self, args)
}

type Property struct {
	Name string
	Get  func(self Object) variant.Value
	// Set is nil for read-only properties.
	Set func(self Object, value variant.Value) error
}

// ClassInfo describes a class at registration time.
type ClassInfo struct {
	Name   string
	Parent string
	// New is nil for abstract classes.
	New        func() Object
	Methods    map[string]MethodFunc
	Properties []Property
	Constants  map[string]int64
}

type class struct {
	name       string
	parent     *class
	new        func() Object
	methods    map[string]*MethodBind
	properties map[string]Property
	constants  map[string]int64
}

// Reflector is the native reflection service consulted after every script
// tier has missed.
type Reflector interface {
	GetProperty(obj Object, name string) (variant.Value, bool)
	SetProperty(obj Object, name string, value variant.Value) (bool, error)
	HasProperty(className, name string) bool
	Method(className, name string) (*MethodBind, bool)
	Constant(className, name string) (int64, bool)
}

// ClassDB is a registry of native classes. Lookups walk the parent chain.
type ClassDB struct {
	mu      sync.RWMutex
	classes map[string]*class
}

// NewClassDB returns a database with Object and RefCounted registered.
func NewClassDB() *ClassDB {
	db := &ClassDB{classes: make(map[string]*class)}
	db.MustRegister(ClassInfo{
		Name: "Object",
		New:  func() Object { return &Base{} },
		Methods: map[string]MethodFunc{
			"get_class": func(_ context.Context, self Object, _ []variant.Value) (variant.Value, error) {
				return variant.NewString(self.ClassName()), nil
			},
			"get_instance_id": func(_ context.Context, self Object, _ []variant.Value) (variant.Value, error) {
				return variant.NewString(self.ObjectID().String()), nil
			},
			"free": func(ctx context.Context, self Object, _ []variant.Value) (variant.Value, error) {
				if _, ok := self.(Referenced); ok {
					return variant.NewNil(), fmt.Errorf("%s is reference counted and cannot be freed directly", self.ClassName())
				}
				self.Free(ctx)
				return variant.NewNil(), nil
			},
		},
	})
	db.MustRegister(ClassInfo{
		Name:   "RefCounted",
		Parent: "Object",
		New:    func() Object { return &RefCounted{} },
		Methods: map[string]MethodFunc{
			"get_reference_count": func(_ context.Context, self Object, _ []variant.Value) (variant.Value, error) {
				if ref, ok := self.(Referenced); ok {
					return variant.NewInt(int64(ref.RefCount())), nil
				}
				return variant.NewInt(0), nil
			},
		},
	})
	return db
}

func (db *ClassDB) Register(info ClassInfo) error {
	if info.Name == "" {
		return fmt.Errorf("%w: empty class name", ErrUnknownClass)
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.classes[info.Name]; exists {
		return fmt.Errorf("%w: %s", ErrClassExists, info.Name)
	}
	c := &class{
		name:       info.Name,
		new:        info.New,
		methods:    make(map[string]*MethodBind, len(info.Methods)),
		properties: make(map[string]Property, len(info.Properties)),
		constants:  make(map[string]int64, len(info.Constants)),
	}
	if info.Parent != "" {
		parent, ok := db.classes[info.Parent]
		if !ok {
			return fmt.Errorf("%w: parent %s of %s", ErrUnknownClass, info.Parent, info.Name)
		}
		c.parent = parent
	}
	for name, fn := range info.Methods {
		c.methods[name] = &MethodBind{Class: info.Name, Name: name, Fn: fn}
	}
	for _, prop := range info.Properties {
		c.properties[prop.Name] = prop
	}
	for name, value := range info.Constants {
		c.constants[name] = value
	}
	db.classes[info.Name] = c
	return nil
}

func (db *ClassDB) MustRegister(info ClassInfo) {
	if err := db.Register(info); err != nil {
		panic(err)
	}
}

// Classes returns every registered class name, sorted.
func (db *ClassDB) Classes() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	names := make([]string, 0, len(db.classes))
	for name := range db.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (db *ClassDB) HasClass(name string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.classes[name]
	return ok
}

// Parent returns the parent class name, or "" for root classes.
func (db *ClassDB) Parent(name string) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if c, ok := db.classes[name]; ok && c.parent != nil {
		return c.parent.name
	}
	return ""
}

// IsParentClass reports whether className is ancestor or inherits from it.
func (db *ClassDB) IsParentClass(className, ancestor string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for c := db.classes[className]; c != nil; c = c.parent {
		if c.name == ancestor {
			return true
		}
	}
	return false
}

func (db *ClassDB) Instantiate(name string) (Object, error) {
	db.mu.RLock()
	c, ok := db.classes[name]
	db.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, name)
	}
	if c.new == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInstanced, name)
	}
	return c.new(), nil
}

// Constants lists the constants visible on a class, including inherited ones.
func (db *ClassDB) Constants(className string) map[string]int64 {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make(map[string]int64)
	for c := db.classes[className]; c != nil; c = c.parent {
		for name, value := range c.constants {
			if _, shadowed := out[name]; !shadowed {
				out[name] = value
			}
		}
	}
	return out
}

func (db *ClassDB) property(className, name string) (Property, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for c := db.classes[className]; c != nil; c = c.parent {
		if prop, ok := c.properties[name]; ok {
			return prop, true
		}
	}
	return Property{}, false
}

func (db *ClassDB) HasProperty(className, name string) bool {
	_, ok := db.property(className, name)
	return ok
}

func (db *ClassDB) GetProperty(obj Object, name string) (variant.Value, bool) {
	prop, ok := db.property(obj.ClassName(), name)
	if !ok || prop.Get == nil {
		return variant.NewNil(), false
	}
	return prop.Get(obj), true
}

// SetProperty reports false when the class has no settable property of that
// name; a rejected value is returned as an error.
func (db *ClassDB) SetProperty(obj Object, name string, value variant.Value) (bool, error) {
	prop, ok := db.property(obj.ClassName(), name)
	if !ok || prop.Set == nil {
		return false, nil
	}
	if err := prop.Set(obj, value); err != nil {
		return false, fmt.Errorf("set %s.%s: %w", obj.ClassName(), name, err)
	}
	return true, nil
}

func (db *ClassDB) Method(className, name string) (*MethodBind, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for c := db.classes[className]; c != nil; c = c.parent {
		if bind, ok := c.methods[name]; ok {
			return bind, true
		}
	}
	return nil, false
}

func (db *ClassDB) Constant(className, name string) (int64, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for c := db.classes[className]; c != nil; c = c.parent {
		if value, ok := c.constants[name]; ok {
			return value, true
		}
	}
	return 0, false
}

var _ Reflector = (*ClassDB)(nil)
