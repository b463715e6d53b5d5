package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"slate/internal/recovery"
)

// Node is one entry in an API-format ComfyUI graph.
type Node struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs,omitempty"`
	Meta      map[string]any `json:"_meta,omitempty"`
}

// Graph is an API-format ComfyUI workflow keyed by node id.
type Graph map[string]Node

// Mapping names the graph nodes rewritten before submission.
// PromptNode is required; empty entries are left untouched by Inject.
type Mapping struct {
	PromptNode   string `json:"promptNode"`
	NegativeNode string `json:"negativeNode,omitempty"`
	SeedNode     string `json:"seedNode,omitempty"`
	SizeNode     string `json:"sizeNode,omitempty"`
	PrefixNode   string `json:"prefixNode,omitempty"`
}

// Profile bundles a workflow graph with its injection mapping.
type Profile struct {
	ID      string  `json:"id"`
	Graph   Graph   `json:"workflow"`
	Mapping Mapping `json:"mapping"`
}

// Params carries the per-run values injected into a graph.
type Params struct {
	Prompt         string
	NegativePrompt string
	Seed           int64
	Width          int
	Height         int
	FrameCount     int
	OutputPrefix   string
}

// Parse decodes a profile document.
func Parse(raw []byte) (Profile, error) {
	var profile Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return Profile{}, recovery.Wrap(recovery.CategoryWorkflowInvalid, "workflow", "parse profile", err)
	}
	return profile, nil
}

// Load reads a profile document from disk. A missing file is reported
// as an invalid workflow so callers surface the path to the user.
func Load(path string) (Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Profile{}, recovery.Errorf(recovery.CategoryWorkflowInvalid, "workflow profile not found: %s", path).
				WithDetail("path", path)
		}
		return Profile{}, fmt.Errorf("workflow: read profile: %w", err)
	}
	profile, err := Parse(raw)
	if err != nil {
		return Profile{}, err
	}
	if strings.TrimSpace(profile.ID) == "" {
		profile.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return profile, nil
}

// LoadProfile reads the profile for a pipeline id from the workflow
// directory, resolving <dir>/<id>.json.
func LoadProfile(dir, id string) (Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Profile{}, recovery.NewError(recovery.CategoryValidationFailed, "workflow profile id is empty")
	}
	return Load(filepath.Join(dir, id+".json"))
}

// Validate reports structural issues with the profile. An empty slice
// means the graph is safe to inject and submit. Issues are ordered by
// node id so repeated runs report identically.
func (p Profile) Validate() []string {
	if len(p.Graph) == 0 {
		return []string{"workflow has no nodes"}
	}
	var issues []string
	for _, id := range p.Graph.nodeIDs() {
		node := p.Graph[id]
		if strings.TrimSpace(node.ClassType) == "" {
			issues = append(issues, fmt.Sprintf("node %s: missing class_type", id))
		}
		names := make([]string, 0, len(node.Inputs))
		for name := range node.Inputs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			target, ok := refTarget(node.Inputs[name])
			if !ok {
				continue
			}
			if _, exists := p.Graph[target]; !exists {
				issues = append(issues, fmt.Sprintf("node %s: input %s references missing node %s", id, name, target))
			}
		}
	}
	for _, ref := range []struct {
		name string
		node string
	}{
		{"promptNode", p.Mapping.PromptNode},
		{"negativeNode", p.Mapping.NegativeNode},
		{"seedNode", p.Mapping.SeedNode},
		{"sizeNode", p.Mapping.SizeNode},
		{"prefixNode", p.Mapping.PrefixNode},
	} {
		if ref.node == "" {
			continue
		}
		if _, exists := p.Graph[ref.node]; !exists {
			issues = append(issues, fmt.Sprintf("mapping %s: node %s not in graph", ref.name, ref.node))
		}
	}
	return issues
}

// Inject returns a copy of the graph with the run parameters applied.
// The positive prompt always lands in the mapped prompt node; the
// remaining mappings are applied only when named in the profile. A
// mapping that points at a node absent from the graph is an error.
func (p Profile) Inject(params Params) (Graph, error) {
	if strings.TrimSpace(p.Mapping.PromptNode) == "" {
		return nil, recovery.NewError(recovery.CategoryMappingMissing, "workflow profile has no prompt node mapping").
			WithDetail("profile", p.ID)
	}
	graph := p.Graph.Clone()
	if err := graph.setInput(p.ID, "promptNode", p.Mapping.PromptNode, "text", params.Prompt); err != nil {
		return nil, err
	}
	if p.Mapping.NegativeNode != "" {
		if err := graph.setInput(p.ID, "negativeNode", p.Mapping.NegativeNode, "text", params.NegativePrompt); err != nil {
			return nil, err
		}
	}
	if p.Mapping.SeedNode != "" {
		// SamplerCustom-style nodes expose noise_seed instead of seed.
		key := "seed"
		if node, ok := graph[p.Mapping.SeedNode]; ok {
			if _, hasNoise := node.Inputs["noise_seed"]; hasNoise {
				key = "noise_seed"
			}
		}
		if err := graph.setInput(p.ID, "seedNode", p.Mapping.SeedNode, key, params.Seed); err != nil {
			return nil, err
		}
	}
	if p.Mapping.SizeNode != "" {
		if params.Width > 0 {
			if err := graph.setInput(p.ID, "sizeNode", p.Mapping.SizeNode, "width", params.Width); err != nil {
				return nil, err
			}
		}
		if params.Height > 0 {
			if err := graph.setInput(p.ID, "sizeNode", p.Mapping.SizeNode, "height", params.Height); err != nil {
				return nil, err
			}
		}
		if params.FrameCount > 0 {
			// Only video latent nodes carry a length input; image
			// pipelines ignore the frame count.
			if node, ok := graph[p.Mapping.SizeNode]; ok {
				if _, hasLength := node.Inputs["length"]; hasLength {
					if err := graph.setInput(p.ID, "sizeNode", p.Mapping.SizeNode, "length", params.FrameCount); err != nil {
						return nil, err
					}
				}
			}
		}
	}
	if p.Mapping.PrefixNode != "" && params.OutputPrefix != "" {
		if err := graph.setInput(p.ID, "prefixNode", p.Mapping.PrefixNode, "filename_prefix", params.OutputPrefix); err != nil {
			return nil, err
		}
	}
	return graph, nil
}

// OutputPrefix reads the filename prefix currently set on the mapped
// prefix node, if any.
func (p Profile) OutputPrefix() string {
	if p.Mapping.PrefixNode == "" {
		return ""
	}
	node, ok := p.Graph[p.Mapping.PrefixNode]
	if !ok {
		return ""
	}
	prefix, _ := node.Inputs["filename_prefix"].(string)
	return prefix
}

// Clone deep-copies the graph so injection never mutates the loaded
// profile. Connection slices are shared; injection replaces whole
// input values and never edits them in place.
func (g Graph) Clone() Graph {
	out := make(Graph, len(g))
	for id, node := range g {
		copied := Node{ClassType: node.ClassType}
		if len(node.Inputs) > 0 {
			copied.Inputs = make(map[string]any, len(node.Inputs))
			for key, value := range node.Inputs {
				copied.Inputs[key] = value
			}
		}
		if len(node.Meta) > 0 {
			copied.Meta = make(map[string]any, len(node.Meta))
			for key, value := range node.Meta {
				copied.Meta[key] = value
			}
		}
		out[id] = copied
	}
	return out
}

func (g Graph) nodeIDs() []string {
	ids := make([]string, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (g Graph) setInput(profileID, mappingName, nodeID, input string, value any) error {
	node, ok := g[nodeID]
	if !ok {
		return recovery.Errorf(recovery.CategoryMappingMissing, "workflow mapping %s points at missing node %s", mappingName, nodeID).
			WithDetail("profile", profileID).
			WithDetail("node", nodeID)
	}
	if node.Inputs == nil {
		node.Inputs = map[string]any{}
	}
	node.Inputs[input] = value
	g[nodeID] = node
	return nil
}

// refTarget extracts the referenced node id from a connection value.
// API-format connections are two-element [node id, output index]
// arrays; some exporters emit the node id as a number.
func refTarget(value any) (string, bool) {
	list, ok := value.([]any)
	if !ok || len(list) != 2 {
		return "", false
	}
	switch id := list[0].(type) {
	case string:
		return id, true
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	default:
		return "", false
	}
}
