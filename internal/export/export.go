// Package export is the narrow boundary between the compiler core and
// the on-disk automaton format. It flattens an automaton into a
// versioned payload in a stable order (state id ascending, edges in
// declaration order) and hands it to the msgpack codec, so building
// the same grammar twice always produces identical bytes.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/Reverier-Xu/LibAFL/internal/automaton"
)

// Current schema version - increment when the payload format changes.
const schemaVersion uint16 = 1

// ErrSchemaVersion reports a payload written by an incompatible
// version of this package.
var ErrSchemaVersion = errors.New("export: unsupported schema version")

type payload struct {
	Schema uint16
	Start  uint32
	States []statePayload
}

type statePayload struct {
	Final bool
	Edges []edgePayload
}

type edgePayload struct {
	Trigger string
	Dst     uint32
}

// Marshal serializes the automaton. The automaton is treated as
// read-only; repeated calls yield identical bytes.
func Marshal(a *automaton.Automaton) ([]byte, error) {
	p := payload{
		Schema: schemaVersion,
		Start:  uint32(a.Start),
		States: make([]statePayload, len(a.States)),
	}
	for id := range a.States {
		src := &a.States[id]
		edges := make([]edgePayload, len(src.Edges))
		for i, e := range src.Edges {
			edges[i] = edgePayload{Trigger: e.Trigger, Dst: uint32(e.Dst)}
		}
		p.States[id] = statePayload{Final: src.Final, Edges: edges}
	}
	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(&p); err != nil {
		return nil, fmt.Errorf("export: encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes an automaton and re-checks its structural
// invariants, so a truncated or hand-edited file is rejected rather
// than walked.
func Unmarshal(data []byte) (*automaton.Automaton, error) {
	var p payload
	if err := msgpack.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		return nil, fmt.Errorf("export: decode failed: %w", err)
	}
	if p.Schema != schemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchemaVersion, p.Schema, schemaVersion)
	}
	a := &automaton.Automaton{
		Start:  automaton.StateID(p.Start),
		States: make([]automaton.State, len(p.States)),
	}
	for id, sp := range p.States {
		edges := make([]automaton.Edge, len(sp.Edges))
		for i, e := range sp.Edges {
			edges[i] = automaton.Edge{Trigger: e.Trigger, Dst: automaton.StateID(e.Dst)}
		}
		a.States[id] = automaton.State{Final: sp.Final, Edges: edges}
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return a, nil
}

// WriteFile persists the automaton atomically: the payload lands in a
// temp file first and replaces the destination with a rename.
func WriteFile(path string, a *automaton.Automaton) error {
	data, err := Marshal(a)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("export: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("export: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// ReadFile loads a previously exported automaton.
func ReadFile(path string) (*automaton.Automaton, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	a, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}
