package hir

import (
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// Location is a source position. The zero value means "generated".
type Location struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// IsGenerated reports whether the location has no source position.
func (l Location) IsGenerated() bool {
	return l.Line == 0
}

func (l Location) String() string {
	if l.IsGenerated() {
		return "<generated>"
	}
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// MutableRange is the instruction range over which a value may be mutated.
// Filled in by later passes; SSA only resets it on renaming.
type MutableRange struct {
	Start InstructionID
	End   InstructionID
}

// Identifier is one SSA value.
type Identifier struct {
	ID            IdentifierID
	DeclarationID DeclarationID
	Name          string // empty for temporaries
	Loc           Location
	MutableRange  MutableRange
	Type          TypeID
}

// IsTemporary reports whether the identifier was introduced by the compiler.
func (i *Identifier) IsTemporary() bool {
	return i.Name == ""
}

// Effect describes how an instruction uses a place.
type Effect string

const (
	EffectUnknown Effect = "<unknown>"
	EffectRead    Effect = "read"
	EffectStore   Effect = "store"
	EffectCapture Effect = "capture"
)

// Place is a reference to an identifier at one use or definition site.
type Place struct {
	Identifier *Identifier
	Effect     Effect
	Loc        Location
}

// WithIdentifier returns a copy of the place pointing at ident.
func (p Place) WithIdentifier(ident *Identifier) Place {
	p.Identifier = ident
	return p
}

// BlockKind classifies a basic block.
type BlockKind string

const (
	BlockKindBlock    BlockKind = "block"
	BlockKindValue    BlockKind = "value"
	BlockKindLoop     BlockKind = "loop"
	BlockKindSequence BlockKind = "sequence"
	BlockKindCatch    BlockKind = "catch"
)

// Instruction is one operation inside a block. Every instruction writes its
// result to Lvalue, a temporary; stores additionally define a named place.
type Instruction struct {
	ID     InstructionID
	Lvalue Place
	Value  InstructionValue
	Loc    Location
}

// Phi merges the reaching definitions of one variable at a join point.
// Operands has exactly one entry per predecessor of the owning block.
type Phi struct {
	Place    Place
	Operands map[BlockID]Place
}

// ID returns the identifier the phi defines.
func (p *Phi) ID() IdentifierID {
	return p.Place.Identifier.ID
}

// SortedOperandBlocks returns the operand keys in ascending order.
func (p *Phi) SortedOperandBlocks() []BlockID {
	ids := make([]BlockID, 0, len(p.Operands))
	for id := range p.Operands {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// BasicBlock is a straight-line instruction sequence closed by one terminal.
type BasicBlock struct {
	ID           BlockID
	Kind         BlockKind
	Instructions []*Instruction
	Terminal     Terminal
	Preds        mapset.Set[BlockID]
	Phis         []*Phi
}

// NewBasicBlock creates an empty completed block with the given terminal.
func NewBasicBlock(id BlockID, kind BlockKind, instrs []*Instruction, term Terminal) *BasicBlock {
	return &BasicBlock{
		ID:           id,
		Kind:         kind,
		Instructions: instrs,
		Terminal:     term,
		Preds:        mapset.NewThreadUnsafeSet[BlockID](),
	}
}

// SortedPreds returns the predecessor ids in ascending order.
func (b *BasicBlock) SortedPreds() []BlockID {
	preds := b.Preds.ToSlice()
	slices.Sort(preds)
	return preds
}

// Graph is a function body: an arena of blocks indexed by id.
//
// Order is the iteration order established by the builder (reverse
// postorder). Blocks present in Blocks but missing from Order are never
// produced by the builder; passes that add blocks must extend Order.
type Graph struct {
	Entry  BlockID
	Blocks map[BlockID]*BasicBlock
	Order  []BlockID
}

// NewGraph creates an empty graph with the given entry.
func NewGraph(entry BlockID) *Graph {
	return &Graph{Entry: entry, Blocks: make(map[BlockID]*BasicBlock)}
}

// Add inserts a block at the end of the iteration order.
func (g *Graph) Add(b *BasicBlock) {
	if _, ok := g.Blocks[b.ID]; !ok {
		g.Order = append(g.Order, b.ID)
	}
	g.Blocks[b.ID] = b
}

// Remove deletes a block from the arena and the order.
func (g *Graph) Remove(id BlockID) {
	delete(g.Blocks, id)
	g.Order = slices.DeleteFunc(g.Order, func(b BlockID) bool { return b == id })
}

// Block looks up a block by id.
func (g *Graph) Block(id BlockID) (*BasicBlock, bool) {
	b, ok := g.Blocks[id]
	return b, ok
}

// Ordered returns the blocks in iteration order.
func (g *Graph) Ordered() []*BasicBlock {
	blocks := make([]*BasicBlock, 0, len(g.Order))
	for _, id := range g.Order {
		if b, ok := g.Blocks[id]; ok {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// Function is a lowered function or closure.
//
// Context lists the places a closure captures from its enclosing function;
// it is empty for a top-level function.
type Function struct {
	Name    string
	Params  []Place
	Returns Place
	Context []Place
	Body    *Graph
	Env     *Env
	Loc     Location
}

// EachFunction calls fn for f and every closure nested in it, outermost first.
func (f *Function) EachFunction(fn func(*Function)) {
	fn(f)
	for _, b := range f.Body.Ordered() {
		for _, instr := range b.Instructions {
			if fe, ok := instr.Value.(*FunctionExpression); ok {
				fe.Func.EachFunction(fn)
			}
		}
	}
}

// BlockCount returns the number of blocks in f and its nested closures.
func (f *Function) BlockCount() int {
	n := 0
	f.EachFunction(func(fn *Function) { n += len(fn.Body.Blocks) })
	return n
}

// PhiCount returns the number of phis in f and its nested closures.
func (f *Function) PhiCount() int {
	n := 0
	f.EachFunction(func(fn *Function) {
		for _, b := range fn.Body.Blocks {
			n += len(b.Phis)
		}
	})
	return n
}
