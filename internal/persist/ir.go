package persist

import (
	"math/big"

	"github.com/AtelierArith/julia-vm-oss-sub008/internal/bytecode"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/compiler"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/errors"
	"github.com/AtelierArith/julia-vm-oss-sub008/internal/value"
)

// Module is the serializable form of a compiler.Program's function
// table: the part of a Program that actually needs to survive a
// round-trip to disk (spec §6.2's "serialized IR module"). The method
// table and struct heap are not persisted and nothing is recompiled on
// load: the loader (internal/ffi's buildProgram) attaches fresh, empty
// tables around the restored function table (spec §5 "Method table &
// struct definitions ... mutated only during the compile phase").
type Module struct {
	Functions []FunctionIR `json:"functions"`
}

// FunctionIR mirrors compiler.FunctionEntry in a JSON-friendly shape.
type FunctionIR struct {
	Name       string   `json:"name"`
	Arity      int      `json:"arity"`
	ParamNames []string `json:"param_names"`
	Chunk      ChunkIR  `json:"chunk"`
}

// ChunkIR mirrors bytecode.Chunk, with Constants re-encoded through
// ConstEntry (interface{} entries aren't JSON round-trippable as-is)
// and HandlerSites flattened to a slice keyed by offset (JSON object
// keys must be strings; int map keys would round-trip as strings anyway,
// but a slice keeps encode/decode symmetric without string<->int churn).
type ChunkIR struct {
	Code         []byte              `json:"code"`
	Constants    []ConstEntry        `json:"constants"`
	NumSlots     int                 `json:"num_slots"`
	SlotNames    map[string]int      `json:"slot_names"`
	HandlerSites []HandlerSiteIR     `json:"handler_sites"`
	Debug        []bytecode.DebugInfo `json:"debug"`
}

// HandlerSiteIR is one bytecode.HandlerSite paired with the code offset
// it was recorded at.
type HandlerSiteIR struct {
	Offset      int `json:"offset"`
	CatchIP     int `json:"catch_ip"`
	FinallyIP   int `json:"finally_ip"`
}

// ConstEntry tags a constant-pool entry with enough of its original Go
// type to reconstruct it: a bare string (names/operator symbols), a
// value.Tag (coercion targets), or a value.Value (literal operands),
// which covers every constant kind internal/compiler's stubs.go and
// expr.go add to a Chunk's pool.
type ConstEntry struct {
	Kind string          `json:"kind"` // "string", "tag", or "value"
	Str  string          `json:"str,omitempty"`
	Tag  value.Tag       `json:"tag,omitempty"`
	Val  *ValueIR        `json:"val,omitempty"`
}

// ValueIR is a JSON-codable projection of value.Value's exported scalar
// accessors, covering the tags the compiler ever places in a constant
// pool (numeric literals, strings, chars, bools); compound/heap-backed
// tags never appear as compiled constants and are not handled here.
type ValueIR struct {
	Tag     value.Tag `json:"tag"`
	Bool    bool      `json:"bool,omitempty"`
	Char    rune      `json:"char,omitempty"`
	Str     string    `json:"str,omitempty"`
	Int     int64     `json:"int,omitempty"`
	Uint    uint64    `json:"uint,omitempty"`
	Float   float64   `json:"float,omitempty"`
	BigText string    `json:"big_text,omitempty"` // decimal text for BigInt/BigFloat
}

// EncodeValue projects a value.Value into its JSON-codable form.
func EncodeValue(v value.Value) ValueIR {
	out := ValueIR{Tag: v.Tag}
	switch {
	case v.Tag == value.TagBool:
		out.Bool = v.AsBool()
	case v.Tag == value.TagChar:
		out.Char = v.AsChar()
	case v.Tag == value.TagString:
		out.Str = v.AsString()
	case v.Tag == value.TagBigInt:
		out.BigText = v.AsBigInt().String()
	case v.Tag == value.TagBigFloat:
		out.BigText = v.AsBigFloat().Text('g', -1)
	case v.Tag.IsFloat():
		out.Float = v.AsFloat()
	case v.Tag.IsInteger():
		out.Int = v.AsInt()
		out.Uint = v.AsUint()
	}
	return out
}

// DecodeValue reverses EncodeValue.
func DecodeValue(iv ValueIR) (value.Value, error) {
	switch {
	case iv.Tag == value.TagBool:
		return value.Bool(iv.Bool), nil
	case iv.Tag == value.TagChar:
		return value.Char(iv.Char), nil
	case iv.Tag == value.TagString:
		return value.String(iv.Str), nil
	case iv.Tag == value.TagF64:
		return value.F64(iv.Float), nil
	case iv.Tag == value.TagF32:
		return value.F32(float32(iv.Float)), nil
	case iv.Tag == value.TagI64:
		return value.I64(iv.Int), nil
	case iv.Tag == value.TagNothing:
		return value.Nothing(), nil
	case iv.Tag == value.TagMissing:
		return value.Missing(), nil
	case iv.Tag == value.TagBigInt:
		n, ok := new(big.Int).SetString(iv.BigText, 10)
		if !ok {
			return value.Value{}, errors.New(errors.UnsupportedFeature, "malformed persisted BigInt constant %q", iv.BigText)
		}
		return value.BigInt(n), nil
	case iv.Tag == value.TagBigFloat:
		f, _, err := big.ParseFloat(iv.BigText, 10, 0, big.ToNearestEven)
		if err != nil {
			return value.Value{}, errors.New(errors.UnsupportedFeature, "malformed persisted BigFloat constant %q", iv.BigText)
		}
		return value.BigFloat(f), nil
	case iv.Tag == value.TagUndefined:
		return value.Undefined(), nil
	case iv.Tag.IsSigned():
		return value.Int(iv.Tag, iv.Int), nil
	case iv.Tag.IsInteger():
		return value.Uint(iv.Tag, iv.Uint), nil
	case iv.Tag.IsFloat():
		return value.Coerce(value.F64(iv.Float), iv.Tag)
	default:
		return value.Value{}, errors.New(errors.UnsupportedFeature, "constant tag %s is not persistable", iv.Tag)
	}
}

// FromProgram projects a compiled Program's function table into a
// serializable Module.
func FromProgram(prog *compiler.Program) (Module, error) {
	mod := Module{Functions: make([]FunctionIR, len(prog.Functions))}
	for i, fn := range prog.Functions {
		chunkIR, err := encodeChunk(fn.Chunk)
		if err != nil {
			return Module{}, err
		}
		mod.Functions[i] = FunctionIR{
			Name:       fn.Name,
			Arity:      fn.Arity,
			ParamNames: fn.ParamNames,
			Chunk:      chunkIR,
		}
	}
	return mod, nil
}

func encodeChunk(c *bytecode.Chunk) (ChunkIR, error) {
	out := ChunkIR{
		Code:      append([]byte(nil), c.Code...),
		NumSlots:  c.NumSlots,
		SlotNames: c.SlotNames,
		Debug:     c.Debug,
	}
	for _, raw := range c.Constants {
		entry, err := encodeConstant(raw)
		if err != nil {
			return ChunkIR{}, err
		}
		out.Constants = append(out.Constants, entry)
	}
	for offset, site := range c.HandlerSites {
		out.HandlerSites = append(out.HandlerSites, HandlerSiteIR{
			Offset: offset, CatchIP: site.CatchIP, FinallyIP: site.FinallyIP,
		})
	}
	return out, nil
}

func encodeConstant(raw interface{}) (ConstEntry, error) {
	switch c := raw.(type) {
	case string:
		return ConstEntry{Kind: "string", Str: c}, nil
	case value.Tag:
		return ConstEntry{Kind: "tag", Tag: c}, nil
	case value.Value:
		v := EncodeValue(c)
		return ConstEntry{Kind: "value", Val: &v}, nil
	default:
		return ConstEntry{}, errors.NewInternal("unrecognized constant-pool entry type %T", raw)
	}
}

// ToProgram rebuilds the function table (chunks only; Methods/Structs/
// Effects are left nil and must be re-attached by the caller, since
// those are rebuilt from the compile phase rather than persisted — see
// Module's doc comment).
func ToProgram(mod Module) (*compiler.Program, error) {
	prog := &compiler.Program{Functions: make([]*compiler.FunctionEntry, len(mod.Functions))}
	for i, fn := range mod.Functions {
		chunk, err := decodeChunk(fn.Chunk)
		if err != nil {
			return nil, err
		}
		prog.Functions[i] = &compiler.FunctionEntry{
			Name:       fn.Name,
			Arity:      fn.Arity,
			ParamNames: fn.ParamNames,
			Chunk:      chunk,
		}
	}
	return prog, nil
}

func decodeChunk(ir ChunkIR) (*bytecode.Chunk, error) {
	c := bytecode.NewChunk()
	c.Code = append([]byte(nil), ir.Code...)
	c.NumSlots = ir.NumSlots
	c.SlotNames = ir.SlotNames
	c.Debug = ir.Debug
	for _, entry := range ir.Constants {
		var raw interface{}
		switch entry.Kind {
		case "string":
			raw = entry.Str
		case "tag":
			raw = entry.Tag
		case "value":
			v, err := DecodeValue(*entry.Val)
			if err != nil {
				return nil, err
			}
			raw = v
		default:
			return nil, errors.NewInternal("unrecognized persisted constant kind %q", entry.Kind)
		}
		c.Constants = append(c.Constants, raw)
	}
	for _, site := range ir.HandlerSites {
		c.HandlerSites[site.Offset] = bytecode.HandlerSite{CatchIP: site.CatchIP, FinallyIP: site.FinallyIP}
	}
	return c, nil
}
