package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"go.uber.org/multierr"

	"github.com/roach88/hirssa/internal/ast"
)

// CompileFunctions decodes every entry of the top-level `function` struct of
// v, in declaration order. A function that fails to decode does not stop the
// others; all decoding errors are returned combined.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`function: f: { params: ["a"], body: [...] }`)
//	fns, err := CompileFunctions(v)
func CompileFunctions(v cue.Value) ([]*ast.Function, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	fnsVal := field(v, "function")
	if !fnsVal.Exists() {
		return nil, &CompileError{
			Field:   "function",
			Message: "no functions defined",
			Pos:     v.Pos(),
		}
	}

	iter, err := fnsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fns []*ast.Function
	var errs error
	for iter.Next() {
		fn, err := CompileFunction(iter.Value())
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		fns = append(fns, fn)
	}
	return fns, errs
}

// CompileSource parses src as CUE and decodes its functions. filename is
// only used for positions in error messages.
func CompileSource(filename string, src []byte) ([]*ast.Function, error) {
	v := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	return CompileFunctions(v)
}

// CompileFunction decodes a single function definition. The function name
// is the last label of v's path.
func CompileFunction(v cue.Value) (*ast.Function, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	name := ""
	if sels := v.Path().Selectors(); len(sels) > 0 {
		name = selectorName(sels[len(sels)-1])
	}
	d := &decoder{}
	return d.function(v, "function."+name, name)
}

// decoder walks a CUE value tree. path is threaded through every call so
// errors name the offending field, e.g. function.f.body[2].if.test.
type decoder struct{}

func (d *decoder) function(v cue.Value, path, name string) (*ast.Function, error) {
	fn := &ast.Function{Name: name, Pos: pos(v)}

	if paramsVal := field(v, "params"); paramsVal.Exists() {
		iter, err := paramsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			pname, err := iter.Value().String()
			if err != nil {
				return nil, &CompileError{
					Field:   fmt.Sprintf("%s.params[%d]", path, i),
					Message: "parameter must be a string name",
					Pos:     iter.Value().Pos(),
				}
			}
			fn.Params = append(fn.Params, ast.Param{Name: pname, Pos: pos(iter.Value())})
		}
	}

	bodyVal := field(v, "body")
	if !bodyVal.Exists() {
		return nil, &CompileError{
			Field:   path + ".body",
			Message: "body is required",
			Pos:     v.Pos(),
		}
	}
	body, err := d.stmts(bodyVal, path+".body")
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

func (d *decoder) stmts(v cue.Value, path string) ([]ast.Stmt, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{
			Field:   path,
			Message: "must be a list of statements",
			Pos:     v.Pos(),
		}
	}
	var out []ast.Stmt
	for i := 0; iter.Next(); i++ {
		s, err := d.stmt(iter.Value(), fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// optionalStmts decodes a statement list that may be absent.
func (d *decoder) optionalStmts(v cue.Value, name, path string) ([]ast.Stmt, error) {
	sv := field(v, name)
	if !sv.Exists() {
		return nil, nil
	}
	return d.stmts(sv, path+"."+name)
}

func (d *decoder) requiredStmts(v cue.Value, name, path string) ([]ast.Stmt, error) {
	sv := field(v, name)
	if !sv.Exists() {
		return nil, &CompileError{
			Field:   path + "." + name,
			Message: name + " is required",
			Pos:     v.Pos(),
		}
	}
	stmts, err := d.stmts(sv, path+"."+name)
	if err != nil {
		return nil, err
	}
	if stmts == nil {
		stmts = []ast.Stmt{}
	}
	return stmts, nil
}

func (d *decoder) stmt(v cue.Value, path string) (ast.Stmt, error) {
	kind, body, err := singleKey(v, path)
	if err != nil {
		return nil, err
	}
	path = path + "." + kind
	p := pos(v)

	switch kind {
	case "let":
		name, err := requiredString(body, "name", path)
		if err != nil {
			return nil, err
		}
		s := &ast.Let{Name: name, Pos: p}
		if s.Value, err = d.optionalExpr(body, "value", path); err != nil {
			return nil, err
		}
		if cv := field(body, "const"); cv.Exists() {
			if s.Const, err = cv.Bool(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		return s, nil

	case "assign":
		name, err := requiredString(body, "name", path)
		if err != nil {
			return nil, err
		}
		value, err := d.requiredExpr(body, "value", path)
		if err != nil {
			return nil, err
		}
		return &ast.Assign{Name: name, Value: value, Pos: p}, nil

	case "expr":
		x, err := d.expr(body, path)
		if err != nil {
			return nil, err
		}
		return &ast.ExprStmt{X: x, Pos: p}, nil

	case "if":
		s := &ast.If{Pos: p}
		if s.Test, err = d.requiredExpr(body, "test", path); err != nil {
			return nil, err
		}
		if s.Then, err = d.requiredStmts(body, "then", path); err != nil {
			return nil, err
		}
		if field(body, "else").Exists() {
			if s.Else, err = d.requiredStmts(body, "else", path); err != nil {
				return nil, err
			}
		}
		return s, nil

	case "while":
		s := &ast.While{Pos: p}
		if s.Label, err = optionalString(body, "label"); err != nil {
			return nil, err
		}
		if s.Test, err = d.requiredExpr(body, "test", path); err != nil {
			return nil, err
		}
		if s.Body, err = d.requiredStmts(body, "body", path); err != nil {
			return nil, err
		}
		return s, nil

	case "do_while":
		s := &ast.DoWhile{Pos: p}
		if s.Label, err = optionalString(body, "label"); err != nil {
			return nil, err
		}
		if s.Body, err = d.requiredStmts(body, "body", path); err != nil {
			return nil, err
		}
		if s.Test, err = d.requiredExpr(body, "test", path); err != nil {
			return nil, err
		}
		return s, nil

	case "for":
		s := &ast.For{Pos: p}
		if s.Label, err = optionalString(body, "label"); err != nil {
			return nil, err
		}
		if iv := field(body, "init"); iv.Exists() {
			if s.Init, err = d.stmt(iv, path+".init"); err != nil {
				return nil, err
			}
		}
		if s.Test, err = d.optionalExpr(body, "test", path); err != nil {
			return nil, err
		}
		if uv := field(body, "update"); uv.Exists() {
			if s.Update, err = d.stmt(uv, path+".update"); err != nil {
				return nil, err
			}
		}
		if s.Body, err = d.requiredStmts(body, "body", path); err != nil {
			return nil, err
		}
		return s, nil

	case "break":
		label, err := optionalString(body, "label")
		if err != nil {
			return nil, err
		}
		return &ast.Break{Label: label, Pos: p}, nil

	case "continue":
		label, err := optionalString(body, "label")
		if err != nil {
			return nil, err
		}
		return &ast.Continue{Label: label, Pos: p}, nil

	case "return":
		s := &ast.Return{Pos: p}
		if s.Value, err = d.optionalExpr(body, "value", path); err != nil {
			return nil, err
		}
		return s, nil

	case "throw":
		value, err := d.requiredExpr(body, "value", path)
		if err != nil {
			return nil, err
		}
		return &ast.Throw{Value: value, Pos: p}, nil

	case "try":
		s := &ast.Try{Pos: p}
		if s.Block, err = d.requiredStmts(body, "block", path); err != nil {
			return nil, err
		}
		if cv := field(body, "catch"); cv.Exists() {
			c := &ast.Catch{Pos: pos(cv)}
			if c.Param, err = optionalString(cv, "param"); err != nil {
				return nil, err
			}
			if c.Body, err = d.requiredStmts(cv, "body", path+".catch"); err != nil {
				return nil, err
			}
			s.Catch = c
		}
		return s, nil

	case "label":
		name, err := requiredString(body, "name", path)
		if err != nil {
			return nil, err
		}
		stmts, err := d.requiredStmts(body, "body", path)
		if err != nil {
			return nil, err
		}
		return &ast.Labeled{Name: name, Body: stmts, Pos: p}, nil

	case "switch":
		s := &ast.Switch{Pos: p}
		if s.Label, err = optionalString(body, "label"); err != nil {
			return nil, err
		}
		if s.Test, err = d.requiredExpr(body, "test", path); err != nil {
			return nil, err
		}
		casesVal := field(body, "cases")
		if !casesVal.Exists() {
			return nil, &CompileError{Field: path + ".cases", Message: "cases is required", Pos: body.Pos()}
		}
		iter, err := casesVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			cv := iter.Value()
			cpath := fmt.Sprintf("%s.cases[%d]", path, i)
			c := ast.Case{Pos: pos(cv)}
			if c.Test, err = d.optionalExpr(cv, "test", cpath); err != nil {
				return nil, err
			}
			if c.Body, err = d.requiredStmts(cv, "body", cpath); err != nil {
				return nil, err
			}
			s.Cases = append(s.Cases, c)
		}
		return s, nil

	default:
		return nil, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("unknown statement %q", kind),
			Pos:     v.Pos(),
		}
	}
}

func (d *decoder) optionalExpr(v cue.Value, name, path string) (ast.Expr, error) {
	ev := field(v, name)
	if !ev.Exists() {
		return nil, nil
	}
	return d.expr(ev, path+"."+name)
}

func (d *decoder) requiredExpr(v cue.Value, name, path string) (ast.Expr, error) {
	ev := field(v, name)
	if !ev.Exists() {
		return nil, &CompileError{
			Field:   path + "." + name,
			Message: name + " is required",
			Pos:     v.Pos(),
		}
	}
	return d.expr(ev, path+"."+name)
}

// expr decodes an expression. Besides the single-key struct forms, a bare
// int or bool is a literal and a bare string is a variable reference.
func (d *decoder) expr(v cue.Value, path string) (ast.Expr, error) {
	p := pos(v)
	switch v.IncompleteKind() {
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return &ast.IntLit{Value: n, Pos: p}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return &ast.BoolLit{Value: b, Pos: p}, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return &ast.Ref{Name: s, Pos: p}, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   path,
			Message: "float literals are not supported - use int instead",
			Pos:     v.Pos(),
		}
	}

	kind, body, err := singleKey(v, path)
	if err != nil {
		return nil, err
	}
	path = path + "." + kind

	switch kind {
	case "int":
		n, err := body.Int64()
		if err != nil {
			return nil, &CompileError{Field: path, Message: "must be an integer", Pos: body.Pos()}
		}
		return &ast.IntLit{Value: n, Pos: p}, nil

	case "str":
		s, err := body.String()
		if err != nil {
			return nil, &CompileError{Field: path, Message: "must be a string", Pos: body.Pos()}
		}
		return &ast.StrLit{Value: s, Pos: p}, nil

	case "bool":
		b, err := body.Bool()
		if err != nil {
			return nil, &CompileError{Field: path, Message: "must be a bool", Pos: body.Pos()}
		}
		return &ast.BoolLit{Value: b, Pos: p}, nil

	case "ref":
		s, err := body.String()
		if err != nil {
			return nil, &CompileError{Field: path, Message: "must be a variable name", Pos: body.Pos()}
		}
		return &ast.Ref{Name: s, Pos: p}, nil

	case "binary":
		op, err := requiredString(body, "op", path)
		if err != nil {
			return nil, err
		}
		left, err := d.requiredExpr(body, "left", path)
		if err != nil {
			return nil, err
		}
		right, err := d.requiredExpr(body, "right", path)
		if err != nil {
			return nil, err
		}
		return &ast.Binary{Op: op, Left: left, Right: right, Pos: p}, nil

	case "unary":
		op, err := requiredString(body, "op", path)
		if err != nil {
			return nil, err
		}
		operand, err := d.requiredExpr(body, "operand", path)
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: op, Operand: operand, Pos: p}, nil

	case "call":
		callee, err := d.requiredExpr(body, "callee", path)
		if err != nil {
			return nil, err
		}
		c := &ast.Call{Callee: callee, Pos: p}
		if av := field(body, "args"); av.Exists() {
			iter, err := av.List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for i := 0; iter.Next(); i++ {
				arg, err := d.expr(iter.Value(), fmt.Sprintf("%s.args[%d]", path, i))
				if err != nil {
					return nil, err
				}
				c.Args = append(c.Args, arg)
			}
		}
		return c, nil

	case "function":
		fn, err := d.function(body, path, "")
		if err != nil {
			return nil, err
		}
		return &ast.FuncLit{Func: fn, Pos: p}, nil

	default:
		return nil, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("unknown expression %q", kind),
			Pos:     v.Pos(),
		}
	}
}

// singleKey returns the only regular field of a struct-shaped node.
func singleKey(v cue.Value, path string) (string, cue.Value, error) {
	if v.IncompleteKind() != cue.StructKind {
		return "", cue.Value{}, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("expected a struct with one key, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
	iter, err := v.Fields()
	if err != nil {
		return "", cue.Value{}, formatCUEError(err)
	}
	if !iter.Next() {
		return "", cue.Value{}, &CompileError{
			Field:   path,
			Message: "expected a struct with one key, got none",
			Pos:     v.Pos(),
		}
	}
	kind := selectorName(iter.Selector())
	body := iter.Value()
	if iter.Next() {
		return "", cue.Value{}, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("expected a struct with one key, got %q and %q", kind, selectorName(iter.Selector())),
			Pos:     v.Pos(),
		}
	}
	return kind, body, nil
}

func requiredString(v cue.Value, name, path string) (string, error) {
	sv := field(v, name)
	if !sv.Exists() {
		return "", &CompileError{
			Field:   path + "." + name,
			Message: name + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := sv.String()
	if err != nil {
		return "", &CompileError{
			Field:   path + "." + name,
			Message: "must be a string",
			Pos:     sv.Pos(),
		}
	}
	return s, nil
}

func optionalString(v cue.Value, name string) (string, error) {
	sv := field(v, name)
	if !sv.Exists() {
		return "", nil
	}
	s, err := sv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// field looks up a direct child by label. Labels such as "if" and "for" are
// CUE keywords, so the path is built from a selector rather than parsed.
func field(v cue.Value, name string) cue.Value {
	return v.LookupPath(cue.MakePath(cue.Str(name)))
}

func selectorName(sel cue.Selector) string {
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}

func pos(v cue.Value) ast.Pos {
	p := v.Pos()
	if !p.IsValid() {
		return ast.Pos{}
	}
	return ast.Pos{File: p.Filename(), Line: p.Line(), Column: p.Column()}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
