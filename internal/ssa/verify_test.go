package ssa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/roach88/hirssa/internal/diagnostics"
	"github.com/roach88/hirssa/internal/hir"
)

func codes(err error) []diagnostics.Code {
	var out []diagnostics.Code
	for _, e := range multierr.Errors(err) {
		out = append(out, diagnostics.CodeOf(e))
	}
	return out
}

// diamond builds bb0 -> {bb1, bb2} -> bb3 by hand, with bb3 returning $r.
func diamond(env *hir.Env) (*hir.Function, map[hir.BlockID]*hir.BasicBlock) {
	test := hir.Place{Identifier: env.NewTemporary(hir.Location{})}
	r := hir.Place{Identifier: env.NewTemporary(hir.Location{})}

	b0 := hir.NewBasicBlock(0, hir.BlockKindBlock, []*hir.Instruction{
		{ID: 1, Lvalue: test, Value: hir.Bool(true)},
	}, &hir.If{Test: test, Consequent: 1, Alternate: 2, Fallthrough: 3})
	b1 := hir.NewBasicBlock(1, hir.BlockKindBlock, nil, &hir.Goto{Block: 3, Variant: hir.GotoBreak})
	b2 := hir.NewBasicBlock(2, hir.BlockKindBlock, nil, &hir.Goto{Block: 3, Variant: hir.GotoBreak})
	b3 := hir.NewBasicBlock(3, hir.BlockKindBlock, []*hir.Instruction{
		{ID: 2, Lvalue: r, Value: hir.Undefined()},
	}, &hir.Return{Variant: hir.ReturnVoid, Value: r})
	b1.Preds.Add(0)
	b2.Preds.Add(0)
	b3.Preds.Append(1, 2)

	g := hir.NewGraph(0)
	for _, b := range []*hir.BasicBlock{b0, b1, b2, b3} {
		g.Add(b)
	}
	fn := &hir.Function{Name: "diamond", Body: g, Env: env}
	return fn, g.Blocks
}

func TestVerifyAcceptsWellFormedGraph(t *testing.T) {
	env := hir.NewEnv()
	fn, blocks := diamond(env)
	x := env.NewNamed("x", hir.Location{})
	x1 := env.Rename(x)
	x2 := env.Rename(x)
	blocks[1].Instructions = []*hir.Instruction{{ID: 3, Lvalue: hir.Place{Identifier: x1}, Value: hir.Int(1)}}
	blocks[2].Instructions = []*hir.Instruction{{ID: 4, Lvalue: hir.Place{Identifier: x2}, Value: hir.Int(2)}}
	blocks[3].Phis = []*hir.Phi{{
		Place:    hir.Place{Identifier: env.Rename(x)},
		Operands: map[hir.BlockID]hir.Place{1: {Identifier: x1}, 2: {Identifier: x2}},
	}}

	assert.NoError(t, Verify(fn))
}

func TestVerifyReportsMultipleDefinitions(t *testing.T) {
	env := hir.NewEnv()
	fn, blocks := diamond(env)
	dup := hir.Place{Identifier: env.NewTemporary(hir.Location{})}
	blocks[1].Instructions = []*hir.Instruction{{ID: 3, Lvalue: dup, Value: hir.Int(1)}}
	blocks[2].Instructions = []*hir.Instruction{{ID: 4, Lvalue: dup, Value: hir.Int(2)}}

	err := Verify(fn)
	require.Error(t, err)
	assert.Equal(t, []diagnostics.Code{diagnostics.ErrCodeMultipleDefinition}, codes(err))
	assert.Contains(t, err.Error(), "instruction [3] and instruction [4]")
}

func TestVerifyReportsPhiOperandMismatch(t *testing.T) {
	env := hir.NewEnv()
	fn, blocks := diamond(env)
	x := env.NewNamed("x", hir.Location{})
	blocks[3].Phis = []*hir.Phi{{
		Place:    hir.Place{Identifier: env.Rename(x)},
		Operands: map[hir.BlockID]hir.Place{1: {Identifier: x}, 0: {Identifier: x}},
	}}

	err := Verify(fn)
	require.Error(t, err)
	assert.Equal(t, []diagnostics.Code{diagnostics.ErrCodePhiOperands}, codes(err))
	assert.Contains(t, err.Error(), "operands from [bb0 bb1], predecessors are [bb1 bb2]")
}

func TestVerifyReportsPhiInStraightLineBlock(t *testing.T) {
	env := hir.NewEnv()
	fn, blocks := diamond(env)
	x := env.NewNamed("x", hir.Location{})
	blocks[1].Phis = []*hir.Phi{{
		Place:    hir.Place{Identifier: env.Rename(x)},
		Operands: map[hir.BlockID]hir.Place{0: {Identifier: x}},
	}}

	err := Verify(fn)
	require.Error(t, err)
	assert.Equal(t, []diagnostics.Code{diagnostics.ErrCodeRedundantPhi}, codes(err))
}

func TestVerifyReportsUndefinedTemporary(t *testing.T) {
	env := hir.NewEnv()
	fn, blocks := diamond(env)
	ghost := hir.Place{Identifier: env.NewTemporary(hir.Location{})}
	blocks[3].Terminal = &hir.Return{Variant: hir.ReturnExplicit, Value: ghost}

	err := Verify(fn)
	require.Error(t, err)
	assert.Equal(t, []diagnostics.Code{diagnostics.ErrCodeUndefinedOperand}, codes(err))
}

func TestVerifyCombinesViolations(t *testing.T) {
	env := hir.NewEnv()
	fn, blocks := diamond(env)
	dup := hir.Place{Identifier: env.NewTemporary(hir.Location{})}
	blocks[1].Instructions = []*hir.Instruction{{ID: 3, Lvalue: dup, Value: hir.Int(1)}}
	blocks[2].Instructions = []*hir.Instruction{{ID: 4, Lvalue: dup, Value: hir.Int(2)}}
	blocks[3].Terminal = &hir.Return{
		Variant: hir.ReturnExplicit,
		Value:   hir.Place{Identifier: env.NewTemporary(hir.Location{})},
	}

	err := Verify(fn)
	require.Error(t, err)
	assert.ElementsMatch(t, []diagnostics.Code{
		diagnostics.ErrCodeMultipleDefinition,
		diagnostics.ErrCodeUndefinedOperand,
	}, codes(err))
}
