package document

import (
	"fmt"
	"sort"
)

// Backend renders a Root into one concrete output format.
type Backend interface {
	Name() string
	Render(root Root) ([]byte, error)
}

// Backend names accepted by Lookup and Render.
const (
	BackendLaTeX = "LaTeX"
	BackendDOCX  = "DOCX"
)

var backends = map[string]func() Backend{
	BackendLaTeX: func() Backend { return &LaTeXBackend{} },
	BackendDOCX:  func() Backend { return &DOCXBackend{} },
}

// UnknownBackendError is returned when a backend name is not registered.
type UnknownBackendError struct {
	Name string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("invalid backend: %q", e.Name)
}

// UnsupportedWrapperError means a wrapper style reached a backend that does
// not know how to render it.
type UnsupportedWrapperError struct {
	Style   WrapStyle
	Backend string
}

func (e *UnsupportedWrapperError) Error() string {
	return fmt.Sprintf("%s: unsupported wrapper %s", e.Backend, e.Style)
}

// Lookup returns a fresh instance of the named backend.
func Lookup(name string) (Backend, error) {
	mk, ok := backends[name]
	if !ok {
		return nil, &UnknownBackendError{Name: name}
	}
	return mk(), nil
}

// Backends lists the registered backend names in sorted order.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render renders root with the named backend. An unknown name fails before
// any node is visited.
func Render(name string, root Root) ([]byte, error) {
	b, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	out, err := b.Render(root)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return out, nil
}
