package interp

import (
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/ir"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/types"
)

// eval implements spec §4.3 step 3: expressions consult transfer
// functions keyed by operator/built-in name, recorded into fs.ann.
func (fs *funcState) eval(e ir.Expr, env *types.Env) types.Type {
	var t types.Type
	switch x := e.(type) {
	case *ir.Literal:
		t = types.Const{Literal: x.Value}

	case *ir.Ident:
		got, ok := env.Get(x.Name)
		if !ok {
			t = types.Bottom
		} else {
			t = got
		}

	case *ir.Binary:
		lt := fs.eval(x.Left, env)
		rt := fs.eval(x.Right, env)
		t = fs.transferBinary(x.Op, x.Left, lt, rt)

	case *ir.Unary:
		t = fs.eval(x.Operand, env)
		if x.Op == "!" {
			t = types.Bool
		}

	case *ir.IsaCheck:
		fs.eval(x.Subject, env)
		target := annotToType(x.TypeRef)
		if ident, ok := x.Subject.(*ir.Ident); ok {
			falseT := splitUnionMinus(currentTypeOf(env, ident.Name), target)
			t = types.Conditional{Var: ident.Name, TrueType: target, FalseType: falseT}
		} else {
			t = types.Bool
		}

	case *ir.Call:
		t = fs.transferCall(x, env)

	case *ir.FieldAccess:
		objType := fs.eval(x.Object, env)
		t = fs.fieldType(objType, x.Field)

	case *ir.Index:
		objType := fs.eval(x.Object, env)
		for _, idx := range x.Indices {
			fs.eval(idx, env)
		}
		t = loopElementType(objType)

	case *ir.ArrayLit:
		var elem types.Type = types.Bottom
		for _, el := range x.Elements {
			elem = types.Join(elem, fs.eval(el, env))
		}
		t = types.ArrayOf(types.Widen(elem))

	case *ir.TupleLit:
		parts := make([]types.Type, len(x.Elements))
		for i, el := range x.Elements {
			parts[i] = fs.eval(el, env)
		}
		t = types.TupleOf(parts...)

	case *ir.DictLit:
		var kt, vt types.Type = types.Bottom, types.Bottom
		for i := range x.Keys {
			kt = types.Join(kt, fs.eval(x.Keys[i], env))
			vt = types.Join(vt, fs.eval(x.Vals[i], env))
		}
		t = types.DictOf(types.Widen(kt), types.Widen(vt))

	case *ir.Broadcast:
		var elem types.Type = types.Bottom
		for _, a := range x.Args {
			at := fs.eval(a, env)
			elem = types.Join(elem, loopElementType(at))
		}
		t = types.ArrayOf(types.Widen(elem))

	case *ir.FuncLit:
		t = types.Any // closures are opaque to this pass; the compiler
		// devirtualizes call sites using the method table, not this type.

	default:
		t = types.Top
	}
	return fs.ann.set(e, t)
}

func currentTypeOf(env *types.Env, name string) types.Type {
	t, ok := env.Get(name)
	if !ok {
		return types.Any
	}
	return t
}

// splitUnionMinus implements the "false branch refines to union - T"
// half of spec §4.3's union splitting.
func splitUnionMinus(whole, remove types.Type) types.Type {
	u, ok := whole.(types.Union)
	if !ok {
		if types.Subtype(whole, remove) {
			return types.Bottom
		}
		return whole
	}
	var remaining []types.Concrete
	for _, m := range u.Members {
		if !types.Subtype(m, remove) {
			remaining = append(remaining, m)
		}
	}
	switch len(remaining) {
	case 0:
		return types.Bottom
	case 1:
		return remaining[0]
	default:
		return types.Union{Members: remaining}
	}
}

// transferBinary implements spec §4.3.1's numeric/comparison/equality
// transfer functions.
func (fs *funcState) transferBinary(op string, left ir.Expr, lt, rt types.Type) types.Type {
	switch op {
	case "+", "-", "*", "/", "%":
		return numericJoin(lt, rt)
	case "==", "!=":
		if ident, ok := left.(*ir.Ident); ok {
			if lit, ok := rt.(types.Const); ok {
				distinguishable := !types.Subtype(types.Widen(lt), types.Widen(types.TypeOfValue(lit.Literal)))
				if distinguishable || isUnion(lt) {
					trueT := types.Meet(lt, types.Widen(lit))
					falseT := splitUnionMinus(lt, types.Widen(lit))
					if op == "!=" {
						trueT, falseT = falseT, trueT
					}
					return types.Conditional{Var: ident.Name, TrueType: trueT, FalseType: falseT}
				}
			}
		}
		return types.Bool
	case "<", ">", "<=", ">=":
		return types.Bool
	case "&&", "||":
		return types.Bool
	default:
		return types.Top
	}
}

func isUnion(t types.Type) bool {
	_, ok := t.(types.Union)
	return ok
}

func numericJoin(a, b types.Type) types.Type {
	wa, wb := types.Widen(a), types.Widen(b)
	ca, aok := wa.(types.Concrete)
	cb, bok := wb.(types.Concrete)
	if aok && bok && ca.Tag.IsNumeric() && cb.Tag.IsNumeric() {
		return types.Join(ca, cb)
	}
	return types.Top
}

// transferCall implements spec §4.3 step 4: calls consult the method
// table; for each applicable method, re-enter the interpreter on its
// IR body with the argument types (memoized).
func (fs *funcState) transferCall(call *ir.Call, env *types.Env) types.Type {
	argTypes := make([]types.Type, len(call.Args))
	for i, a := range call.Args {
		argTypes[i] = types.Widen(fs.eval(a, env))
	}
	name, ok := calleeName(call.Callee)
	if !ok {
		fs.eval(call.Callee, env)
		return types.Top
	}
	m, found := fs.in.Methods.ResolveStatic(name, argTypes)
	if !found {
		return types.Top // unknown/ambiguous callee: compiler falls back to CallDynamic
	}
	if m.ReturnType != nil {
		return m.ReturnType
	}
	if m.IRBody == nil {
		return types.Top
	}
	result := fs.in.AnalyzeFunction(m.IRBody, argTypes)
	return result.ReturnType
}

func calleeName(e ir.Expr) (string, bool) {
	if id, ok := e.(*ir.Ident); ok {
		return id.Name, true
	}
	return "", false
}

func (fs *funcState) fieldType(objType types.Type, field string) types.Type {
	c, ok := types.Widen(objType).(types.Concrete)
	if !ok || c.Kind != "Struct" || fs.in.Structs == nil {
		return types.Top
	}
	t, ok := fs.in.Structs.FieldType(c.StructName, field)
	if !ok {
		return types.Top
	}
	return t
}
