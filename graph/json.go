package graph

import (
	"encoding/json"
	"fmt"
)

// SupportedVersion is the JSON schema major version this loader accepts;
// documents declaring any other major are rejected.
const SupportedVersion = "2.0"

type jsonDoc struct {
	Version string          `json:"version"`
	Index   *int            `json:"index,omitempty"`
	Total   *int            `json:"total,omitempty"`
	Nodes   []jsonNode      `json:"nodes"`
	Edges   []jsonEdge      `json:"edges"`
}

type jsonNode struct {
	Plugin     string         `json:"plugin"`
	Name       string         `json:"name"`
	Package    string         `json:"package,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

type jsonEndpoint struct {
	Name  string `json:"name"`
	Input *int   `json:"input,omitempty"`
}

type jsonEdge struct {
	From jsonEndpoint `json:"from"`
	To   jsonEndpoint `json:"to"`
}

// Load parses a JSON task-graph document. pm is used to instantiate each
// node's Task via its plugin name.
func Load(data []byte, pm PluginManager) (*TaskGraph, error) {
	var doc struct {
		Version string                     `json:"version"`
		Index   *int                       `json:"index,omitempty"`
		Total   *int                       `json:"total,omitempty"`
		Nodes   []json.RawMessage          `json:"nodes"`
		Edges   []jsonEdge                 `json:"edges"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, jsonKeyErr("invalid document: %v", err)
	}
	if doc.Version == "" {
		return nil, jsonKeyErr("missing version")
	}
	if major(doc.Version) != major(SupportedVersion) {
		return nil, jsonKeyErr("unsupported schema version %q", doc.Version)
	}

	tg := NewTaskGraph()
	if doc.Index != nil && doc.Total != nil {
		if err := tg.SetPartition(*doc.Index, *doc.Total); err != nil {
			return nil, err
		}
	}

	for _, raw := range doc.Nodes {
		var n jsonNode
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, jsonKeyErr("invalid node: %v", err)
		}
		if n.Plugin == "" {
			return nil, jsonKeyErr("node missing required field 'plugin'")
		}
		if n.Name == "" {
			return nil, jsonKeyErr("node missing required field 'name'")
		}
		if _, exists := tg.byName[n.Name]; exists {
			return nil, jsonKeyErr("Duplicate name '%s' found", n.Name)
		}

		t, err := pm.Create(n.Plugin, n.Name)
		if err != nil {
			return nil, fmt.Errorf("creating task %q: %w", n.Name, err)
		}
		t.Plugin = n.Plugin
		t.Name = n.Name
		t.Package = n.Package
		if t.Properties == nil {
			t.Properties = map[string]any{}
		}

		for key, val := range n.Properties {
			if err := applyProperty(t, key, val); err != nil {
				return nil, err
			}
		}

		if err := tg.AddTask(t); err != nil {
			return nil, err
		}
	}

	for _, e := range doc.Edges {
		if e.From.Name == "" || e.To.Name == "" {
			return nil, jsonKeyErr("edge missing required 'from'/'to' name")
		}
		from, ok := tg.Task(e.From.Name)
		if !ok {
			return nil, jsonKeyErr("edge references unknown node %q", e.From.Name)
		}
		to, ok := tg.Task(e.To.Name)
		if !ok {
			return nil, jsonKeyErr("edge references unknown node %q", e.To.Name)
		}
		input := 0
		if e.To.Input != nil {
			input = *e.To.Input
		}
		if len(to.Inputs) > 0 && input >= len(to.Inputs) {
			return nil, jsonKeyErr("edge to %q: input %d >= num_inputs %d", e.To.Name, input, len(to.Inputs))
		}
		if err := tg.ConnectFull(from, to, input); err != nil {
			return nil, err
		}
	}

	return tg, nil
}

// applyProperty installs one JSON property value onto t: a nested task
// object (recognized by containing a "plugin" key) is stored as-is for
// the caller to resolve against its own plugin manager if it chooses to,
// a JSON object without "plugin" is handed to SetJSONObjectProperty, and
// everything else (primitive or array of primitives) is stored as-is.
func applyProperty(t *Task, key string, val any) error {
	if key == "num-processed" {
		// read-only property; loading is a no-op.
		return nil
	}

	if obj, ok := val.(map[string]any); ok {
		if _, isNested := obj["plugin"]; isNested {
			t.Properties[key] = obj
			return nil
		}
		if t.Impl != nil {
			if err := t.Impl.SetJSONObjectProperty(key, obj); err != nil {
				return jsonKeyErr("property %q: %v", key, err)
			}
		}
		t.Properties[key] = obj
		return nil
	}

	t.Properties[key] = val
	return nil
}

func major(version string) string {
	for i, r := range version {
		if r == '.' {
			return version[:i]
		}
	}
	return version
}

// Save serializes tg to its JSON form. The round-trip guarantee holds
// for graphs whose tasks carry only JSON-representable properties:
// Load(Save(tg)) is equal to tg up to removal of read-only properties
// and omission of default-valued properties, which Save never
// introduces in the first place since it only ever emits Task.Properties
// verbatim.
func (tg *TaskGraph) Save() ([]byte, error) {
	doc := jsonDoc{
		Version: SupportedVersion,
		Index:   intPtr(tg.partitionIndex),
		Total:   intPtr(tg.partitionTotal),
	}

	for _, t := range tg.Tasks() {
		props := map[string]any{}
		for k, v := range t.Properties {
			if k == "num-processed" {
				continue
			}
			props[k] = v
		}
		doc.Nodes = append(doc.Nodes, jsonNode{
			Plugin:     t.Plugin,
			Name:       t.Name,
			Package:    t.Package,
			Properties: props,
		})
	}

	for _, t := range tg.Tasks() {
		for _, e := range tg.g.OutEdges(t) {
			to := e.To.(*Task)
			input := e.Label
			doc.Edges = append(doc.Edges, jsonEdge{
				From: jsonEndpoint{Name: t.Name},
				To:   jsonEndpoint{Name: to.Name, Input: intPtr(input)},
			})
		}
	}

	return json.MarshalIndent(doc, "", "  ")
}

func intPtr(i int) *int { return &i }
