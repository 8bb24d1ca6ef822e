package compiler

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/roach88/hirssa/internal/ast"
)

func compileOne(t *testing.T, src, name string) (*ast.Function, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("test.cue"))
	require.NoError(t, v.Err())
	return CompileFunction(v.LookupPath(cue.MakePath(cue.Str("function"), cue.Str(name))))
}

func TestCompileFunctionBasic(t *testing.T) {
	fn, err := compileOne(t, `
		function: add: {
			params: ["a", "b"]
			body: [
				{"let": {name: "sum", value: {binary: {op: "+", left: "a", right: "b"}}}},
				{"return": {value: "sum"}},
			]
		}
	`, "add")
	require.NoError(t, err)

	assert.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Equal(t, "b", fn.Params[1].Name)
	assert.Equal(t, "test.cue", fn.Params[0].Pos.File)
	require.Len(t, fn.Body, 2)

	let, ok := fn.Body[0].(*ast.Let)
	require.True(t, ok)
	assert.Equal(t, "sum", let.Name)
	assert.False(t, let.Const)
	bin, ok := let.Value.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)
	assert.Equal(t, &ast.Ref{Name: "a", Pos: bin.Left.Position()}, bin.Left)

	ret, ok := fn.Body[1].(*ast.Return)
	require.True(t, ok)
	assert.IsType(t, &ast.Ref{}, ret.Value)
	assert.Greater(t, ret.Pos.Line, 0)
}

func TestCompileFunctionControlFlow(t *testing.T) {
	fn, err := compileOne(t, `
		function: flow: {
			params: ["n"]
			body: [
				{"let": {name: "i", value: 0}},
				{while: {label: "outer", test: {binary: {op: "<", left: "i", right: "n"}}, body: [
					{"if": {test: {call: {callee: "done", args: ["i"]}}, then: [{"break": {label: "outer"}}], "else": [{"continue": {}}]}},
				]}},
				{do_while: {body: [{expr: {call: {callee: "tick"}}}], test: false}},
				{"for": {
					"init": {"let": {name: "j", value: 0}}
					update: {assign: {name: "j", value: {binary: {op: "+", left: "j", right: 1}}}}
					body: []
				}},
				{"try": {block: [{throw: {value: {str: "boom"}}}], "catch": {param: "e", body: [{expr: "e"}]}}},
				{label: {name: "blk", body: [{"break": {label: "blk"}}]}},
				{"switch": {test: "n", cases: [
					{test: 1, body: [{"break": {}}]},
					{body: []},
				]}},
				{"return": {}},
			]
		}
	`, "flow")
	require.NoError(t, err)
	require.Len(t, fn.Body, 8)

	w := fn.Body[1].(*ast.While)
	assert.Equal(t, "outer", w.Label)
	ifs := w.Body[0].(*ast.If)
	assert.Equal(t, "outer", ifs.Then[0].(*ast.Break).Label)
	assert.Equal(t, "", ifs.Else[0].(*ast.Continue).Label)
	call := ifs.Test.(*ast.Call)
	assert.Equal(t, "done", call.Callee.(*ast.Ref).Name)
	require.Len(t, call.Args, 1)

	dw := fn.Body[2].(*ast.DoWhile)
	assert.Equal(t, false, dw.Test.(*ast.BoolLit).Value)

	f := fn.Body[3].(*ast.For)
	assert.IsType(t, &ast.Let{}, f.Init)
	assert.Nil(t, f.Test)
	assert.IsType(t, &ast.Assign{}, f.Update)
	assert.NotNil(t, f.Body)
	assert.Empty(t, f.Body)

	tr := fn.Body[4].(*ast.Try)
	require.NotNil(t, tr.Catch)
	assert.Equal(t, "e", tr.Catch.Param)
	assert.Equal(t, "boom", tr.Block[0].(*ast.Throw).Value.(*ast.StrLit).Value)

	lb := fn.Body[5].(*ast.Labeled)
	assert.Equal(t, "blk", lb.Name)

	sw := fn.Body[6].(*ast.Switch)
	require.Len(t, sw.Cases, 2)
	assert.Equal(t, int64(1), sw.Cases[0].Test.(*ast.IntLit).Value)
	assert.Nil(t, sw.Cases[1].Test)

	assert.Nil(t, fn.Body[7].(*ast.Return).Value)
}

func TestCompileFunctionLiteral(t *testing.T) {
	fn, err := compileOne(t, `
		function: outer: {
			body: [
				{"let": {name: "g", const: true, value: {function: {params: ["y"], body: [{"return": {value: "y"}}]}}}},
			]
		}
	`, "outer")
	require.NoError(t, err)

	let := fn.Body[0].(*ast.Let)
	assert.True(t, let.Const)
	lit, ok := let.Value.(*ast.FuncLit)
	require.True(t, ok)
	assert.Equal(t, "", lit.Func.Name)
	require.Len(t, lit.Func.Params, 1)
	assert.Equal(t, "y", lit.Func.Params[0].Name)
}

func TestCompileFunctionErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
		msg   string
	}{
		{
			name:  "missing body",
			src:   `function: f: { params: [] }`,
			field: "function.f.body",
			msg:   "body is required",
		},
		{
			name:  "unknown statement",
			src:   `function: f: { body: [{goto: {label: "x"}}] }`,
			field: "function.f.body[0].goto",
			msg:   `unknown statement "goto"`,
		},
		{
			name:  "two keys",
			src:   `function: f: { body: [{expr: 1, "return": {}}] }`,
			field: "function.f.body[0]",
			msg:   "expected a struct with one key",
		},
		{
			name:  "unknown expression",
			src:   `function: f: { body: [{expr: {lambda: {}}}] }`,
			field: "function.f.body[0].expr.lambda",
			msg:   `unknown expression "lambda"`,
		},
		{
			name:  "missing test",
			src:   `function: f: { body: [{while: {body: []}}] }`,
			field: "function.f.body[0].while.test",
			msg:   "test is required",
		},
		{
			name:  "float literal",
			src:   `function: f: { body: [{"return": {value: 1.5}}] }`,
			field: "function.f.body[0].return.value",
			msg:   "float literals are not supported",
		},
		{
			name:  "param not a string",
			src:   `function: f: { params: [1], body: [] }`,
			field: "function.f.params[0]",
			msg:   "parameter must be a string name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileOne(t, tt.src, "f")
			require.Error(t, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce), "expected CompileError, got %T", err)
			assert.Equal(t, tt.field, ce.Field)
			assert.Contains(t, ce.Message, tt.msg)
			assert.True(t, ce.Pos.IsValid())
			assert.Contains(t, err.Error(), "test.cue:")
		})
	}
}

func TestCompileFunctionsCollectsAllErrors(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		function: good: { body: [{"return": {value: 1}}] }
		function: bad1: { body: [{nope: {}}] }
		function: bad2: {}
	`)
	require.NoError(t, v.Err())

	fns, err := CompileFunctions(v)
	require.Error(t, err)
	require.Len(t, fns, 1)
	assert.Equal(t, "good", fns[0].Name)
	assert.Len(t, multierr.Errors(err), 2)
}

func TestCompileFunctionsRequiresFunctionStruct(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`concept: x: {}`)
	require.NoError(t, v.Err())

	_, err := CompileFunctions(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no functions defined")
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "function.f.body", Message: "body is required"}
	assert.Equal(t, "function.f.body: body is required", err.Error())
}
