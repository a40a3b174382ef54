package document

import (
	"sync"
	"testing"
)

func TestRoot_AddChildrenDoesNotMutate(t *testing.T) {
	base := EmptyRoot().AddChildren(NewContentBlock(Text("a")))
	left := base.AddChildren(NewPage{})
	right := base.AddChildren(NewContentBlock(Text("b")))

	if base.Len() != 1 {
		t.Errorf("expected base to keep 1 child, got %d", base.Len())
	}
	if left.Len() != 2 || right.Len() != 2 {
		t.Fatalf("expected derived roots to have 2 children, got %d and %d", left.Len(), right.Len())
	}
	if _, ok := left.Children()[1].(NewPage); !ok {
		t.Errorf("expected left's second child to be NewPage, got %T", left.Children()[1])
	}
	if _, ok := right.Children()[1].(ContentBlock); !ok {
		t.Errorf("expected right's second child to be ContentBlock, got %T", right.Children()[1])
	}
}

func TestRoot_ChildrenIsACopy(t *testing.T) {
	root := EmptyRoot().AddChildren(NewPage{})
	children := root.Children()
	children[0] = NewContentBlock()
	if _, ok := root.Children()[0].(NewPage); !ok {
		t.Error("expected root to be unaffected by changes to the returned slice")
	}
}

func TestCodeBlock_LastLine(t *testing.T) {
	b := &CodeBlock{FirstLine: 9, Lines: make([]string, 14)}
	if got := b.LastLine(); got != 22 {
		t.Errorf("expected last line 22, got %d", got)
	}
}

func TestIDAllocator_Unique(t *testing.T) {
	var ids IDAllocator
	var mu sync.Mutex
	seen := make(map[HighlightID]bool)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h := ids.NewHighlight(Color{}, Color{})
				mu.Lock()
				if seen[h.ID()] {
					t.Errorf("id %s allocated twice", h.ID())
				}
				seen[h.ID()] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != 800 {
		t.Errorf("expected 800 ids, got %d", len(seen))
	}
}

func TestHighlight_SameColorsDistinctIDs(t *testing.T) {
	a := NewHighlight(Color{Red: 1}, Color{})
	b := NewHighlight(Color{Red: 1}, Color{})
	if a.ID() == b.ID() {
		t.Error("expected distinct ids for equal colors")
	}
}

func TestColor_Hex(t *testing.T) {
	c := Color{Red: 255, Green: 8, Blue: 0}
	if got := c.Hex(); got != "ff0800" {
		t.Errorf("expected %q, got %q", "ff0800", got)
	}
}

func TestContentBlock_PlainText(t *testing.T) {
	b := NewContentBlock(Text("File "), Monospace(Text("a.go")), Text(" of "), NonBreaking{"Jane", "Doe"})
	if got := b.PlainText(); got != "File a.go of Jane Doe" {
		t.Errorf("expected %q, got %q", "File a.go of Jane Doe", got)
	}
}

func TestWrapStyle_String(t *testing.T) {
	if StyleBold.String() != "bold" {
		t.Errorf("expected %q, got %q", "bold", StyleBold.String())
	}
	if got := WrapStyle(9).String(); got != "WrapStyle(9)" {
		t.Errorf("expected %q, got %q", "WrapStyle(9)", got)
	}
}
