package hir

import (
	"fmt"
	"sync/atomic"
)

// BlockID identifies a basic block within one function (and its nested closures).
type BlockID int64

// NoBlock marks an absent optional block reference, e.g. a For without update.
const NoBlock BlockID = -1

func (id BlockID) String() string {
	return fmt.Sprintf("bb%d", int64(id))
}

// IdentifierID identifies one SSA value. Unique per definition after SSA.
type IdentifierID int64

// DeclarationID identifies one logical source variable across all of its renamings.
type DeclarationID int64

// InstructionID orders instructions and terminals. Assigned by the builder's
// final numbering pass; zero means "not yet numbered".
type InstructionID int64

// TypeID is a placeholder type variable for later inference passes.
type TypeID int64

// Env issues block, identifier and type ids for one function and every
// closure nested inside it.
//
// Ids come from monotonic counters so allocation order alone decides the
// numbering; two builds of the same source produce the same ids.
//
// Thread-safety: counters are atomic, but a function is built and converted by
// a single goroutine, so contention never happens in practice.
type Env struct {
	blocks      atomic.Int64
	identifiers atomic.Int64
	types       atomic.Int64
}

// NewEnv creates an allocator whose first block and identifier ids are 0.
func NewEnv() *Env {
	return &Env{}
}

// NextBlockID returns a fresh block id.
func (e *Env) NextBlockID() BlockID {
	return BlockID(e.blocks.Add(1) - 1)
}

// NextIdentifierID returns a fresh identifier id.
func (e *Env) NextIdentifierID() IdentifierID {
	return IdentifierID(e.identifiers.Add(1) - 1)
}

// NextTypeID returns a fresh type variable.
func (e *Env) NextTypeID() TypeID {
	return TypeID(e.types.Add(1) - 1)
}

// BlockCount reports how many block ids have been issued.
func (e *Env) BlockCount() int64 {
	return e.blocks.Load()
}

// IdentifierCount reports how many identifier ids have been issued.
func (e *Env) IdentifierCount() int64 {
	return e.identifiers.Load()
}

// NewTemporary allocates an unnamed identifier for a compiler-introduced
// intermediate. Its declaration id is derived from its own id.
func (e *Env) NewTemporary(loc Location) *Identifier {
	id := e.NextIdentifierID()
	return &Identifier{
		ID:            id,
		DeclarationID: DeclarationID(id),
		Loc:           loc,
		Type:          e.NextTypeID(),
	}
}

// NewNamed allocates the identifier for a newly declared source variable.
func (e *Env) NewNamed(name string, loc Location) *Identifier {
	ident := e.NewTemporary(loc)
	ident.Name = name
	return ident
}

// Rename returns a fresh identifier for a new definition of the same logical
// variable: new id and type, same declaration id, name and location.
func (e *Env) Rename(old *Identifier) *Identifier {
	return &Identifier{
		ID:            e.NextIdentifierID(),
		DeclarationID: old.DeclarationID,
		Name:          old.Name,
		Loc:           old.Loc,
		Type:          e.NextTypeID(),
	}
}
