// Package persist implements the persisted-bytecode envelope of spec
// §6.2: a JSON object carrying a format version, VM version, target
// triple, module name, source hash, and the serialized IR payload, with
// loading rejecting any mismatch on those fields.
//
// Grounded on sentra's packages.Module (field-tagged JSON record
// round-tripped with encoding/json) and internal/vm/vm_cached.go's
// cache-validity idea, generalized from "was this exact module cached"
// to "is this exact bytecode compatible with the running VM".
package persist

import (
	"encoding/json"

	"golang.org/x/mod/semver"

	"github.com/AtelierArith/julia-vm-oss-sub008/internal/errors"
)

// FormatVersion is the current envelope schema version (spec §6.2).
const FormatVersion = 1

// VMVersion is the running binary's version, compared against a loaded
// envelope's VMVersion field with semver.Compare (spec §6.2's "VM
// version (string)"; must compare equal to 0 rather than be byte-equal,
// so "0.1.0" without the leading "v" or a build-metadata suffix such as
// "v0.1.0+local" still loads, while a pre-release such as "v0.1.0-rc.1"
// compares lower and is rejected).
const VMVersion = "v0.1.0"

// Envelope is the on-disk/on-wire persisted form of one compiled module
// (spec §6.2). IR holds the module's compiled function table, serialized
// by internal/bytecode's own JSON-friendly shape (see ir.go); this is
// the form compile_to_ir/run_ir_json in internal/ffi produce and
// consume, and what internal/cache stores keyed by hash.
type Envelope struct {
	FormatVersion int    `json:"format_version"`
	VMVersion     string `json:"vm_version"`
	Target        string `json:"target"`
	ModuleName    string `json:"module_name"`
	SourceHash    string `json:"source_hash"`
	IR            Module `json:"ir"`
}

// New wraps a compiled Module into an Envelope stamped with the current
// format/VM version and the given target triple, module name, and
// source hash.
func New(target, moduleName, sourceHash string, ir Module) Envelope {
	return Envelope{
		FormatVersion: FormatVersion,
		VMVersion:     VMVersion,
		Target:        target,
		ModuleName:    moduleName,
		SourceHash:    sourceHash,
		IR:            ir,
	}
}

// Marshal serializes an Envelope to its JSON wire form.
func Marshal(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Unmarshal parses and validates an Envelope against the fields it
// names the loader's expectations for (spec §6.2 "Loading rejects any
// mismatch on version/target/name/hash").
func Unmarshal(data []byte, wantTarget, wantModuleName, wantSourceHash string) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, errors.New(errors.UnsupportedFeature, "malformed persisted bytecode envelope: %v", err)
	}
	if env.FormatVersion != FormatVersion {
		return Envelope{}, errors.New(errors.UnsupportedFeature, "persisted format version %d, want %d", env.FormatVersion, FormatVersion)
	}
	if semver.Compare(normalizeVersion(env.VMVersion), normalizeVersion(VMVersion)) != 0 {
		return Envelope{}, errors.New(errors.UnsupportedFeature, "persisted VM version %s is not compatible with running version %s", env.VMVersion, VMVersion)
	}
	if wantTarget != "" && env.Target != wantTarget {
		return Envelope{}, errors.New(errors.UnsupportedFeature, "persisted target %s does not match running target %s", env.Target, wantTarget)
	}
	if wantModuleName != "" && env.ModuleName != wantModuleName {
		return Envelope{}, errors.New(errors.UnsupportedFeature, "persisted module name %s does not match requested %s", env.ModuleName, wantModuleName)
	}
	if wantSourceHash != "" && env.SourceHash != wantSourceHash {
		return Envelope{}, errors.New(errors.UnsupportedFeature, "persisted source hash %s does not match current source hash %s", env.SourceHash, wantSourceHash)
	}
	return env, nil
}

// normalizeVersion makes a bare "1.0.0"-style string semver.Compare-able
// (semver.Compare requires the leading "v" semver.IsValid checks for).
func normalizeVersion(v string) string {
	if len(v) > 0 && v[0] != 'v' {
		return "v" + v
	}
	return v
}
