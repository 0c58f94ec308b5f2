package rules

import "fmt"

// MaxSwitchInputs is the number of numbered inputs (input1..inputN) traced
// through an ImpactSwitch node. It matches the widest switch the tool has
// been used with; inputs beyond it are not followed.
const MaxSwitchInputs = 19

// Mode selects one of the two sanitization pipelines.
type Mode string

const (
	// ModePaths strictly replaces known loader widgets and flattens paths everywhere else.
	ModePaths Mode = "paths"
	// ModePrompts resets loader filenames and clears prompt text upstream of generators.
	ModePrompts Mode = "prompts"
)

// Policy is the complete rule set for one pipeline.
type Policy struct {
	Mode Mode
	// Params decides how each node's own widget list is rewritten.
	Params *Table
	// Generators mark tracing roots. Empty disables tracing.
	Generators []Matcher
	// Trace classifies nodes met while walking upstream.
	Trace *Table
}

// IsGenerator reports whether nodeType is a tracing root.
func (p *Policy) IsGenerator(nodeType string) bool {
	for _, m := range p.Generators {
		if m.Match(nodeType) {
			return true
		}
	}
	return false
}

// ForMode returns a fresh default policy for m.
func ForMode(m Mode) (*Policy, error) {
	switch m {
	case ModePaths:
		return PathPolicy(), nil
	case ModePrompts:
		return PromptPolicy(), nil
	}
	return nil, fmt.Errorf("unknown sanitize mode %q", m)
}

// PathPolicy is the flatten-and-strict pipeline. Text encoders are excluded
// so deliberate prompt text survives; unknown types are flattened.
func PathPolicy() *Policy {
	return &Policy{
		Mode: ModePaths,
		Params: NewTable(Flatten,
			Excluded(Contains("CLIPTextEncode")),
			Strict(Exact("SDPromptReader"), map[int]any{
				0: "sanitized_image.png",
				3: "", // positive
				4: "", // negative
				5: "", // metadata
			}),
			Strict(Exact("SDBatchLoader"), map[int]any{
				0: "sanitized_input_path/",
				3: "sanitized_image.png",
			}),
			Placeholder(Exact("LoadImage"), "sanitized_image.png"),
			Placeholder(Exact("LoraLoader"), "sanitized_lora.safetensors"),
		),
		Trace: NewTable(Opaque),
	}
}

// PromptPolicy is the strict-filenames-and-trace pipeline.
func PromptPolicy() *Policy {
	return &Policy{
		Mode: ModePrompts,
		Params: NewTable(Opaque,
			Placeholder(Exact("Checkpoint Loader with Name (Image Saver)"), "sanitized_checkpoint.safetensors"),
			Placeholder(Exact("LoraLoader"), "sanitized_lora.safetensors"),
			Placeholder(Exact("IPAdapterModelLoader"), "sanitized_ipadapter.bin"),
			Placeholder(Exact("CLIPVisionLoader"), "sanitized_clipvision.safetensors"),
			Placeholder(Exact("ControlNetLoader"), "sanitized_controlnet.safetensors"),
			Placeholder(Exact("UltralyticsDetectorProvider"), "sanitized_bbox_model.pt"),
			Placeholder(Exact("SAMLoader"), "sanitized_sam_model.pth"),
			Placeholder(Exact("LoadImage"), "sanitized_image.png"),
			Placeholder(Exact("CheckpointLoaderSimple"), "sanitized_checkpoint.safetensors"),
			Placeholder(Exact("VAELoader"), "sanitized_vae.safetensors"),
		),
		Generators: []Matcher{Contains("PromptGenerator")},
		Trace: NewTable(Opaque,
			Terminal(Contains("PrimitiveString")),
			Terminal(Contains("CLIPTextEncode")),
			Through(Contains("PromptGenerator"), "prompt"),
			Through(Contains("RegexReplace"), "string"),
			Through(Contains("StringConcatenate"), "string_a", "string_b"),
			Through(Contains("ImpactSwitch"), SwitchInputs()...),
		),
	}
}

// SwitchInputs returns input1..inputN for N = MaxSwitchInputs.
func SwitchInputs() []string {
	names := make([]string, MaxSwitchInputs)
	for i := range names {
		names[i] = fmt.Sprintf("input%d", i+1)
	}
	return names
}
