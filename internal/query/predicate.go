package query

import "fmt"

// Predicate is one filter condition on a fact-table column. The concrete
// types form a small tagged union (Eq, In, Range) that the storage adapter
// translates into its own query syntax; the core never builds SQL strings.
type Predicate interface {
	Column() string
	String() string
}

type Eq struct {
	Col   string
	Value int
}

func (p Eq) Column() string { return p.Col }
func (p Eq) String() string { return fmt.Sprintf("%s = %d", p.Col, p.Value) }

type In struct {
	Col    string
	Values []int
}

func (p In) Column() string { return p.Col }
func (p In) String() string { return fmt.Sprintf("%s in %v", p.Col, p.Values) }

// Range is the closed interval [Low, High]. Low == High is legal and
// equivalent to Eq.
type Range struct {
	Col  string
	Low  int
	High int
}

func (p Range) Column() string { return p.Col }
func (p Range) String() string { return fmt.Sprintf("%s in [%d, %d]", p.Col, p.Low, p.High) }
