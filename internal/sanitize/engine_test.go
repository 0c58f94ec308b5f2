package sanitize

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"scrubflow/internal/rules"
	"scrubflow/internal/workflow"
)

func TestPaths_LoadImageAndExcludedEncoder(t *testing.T) {
	doc := decode(t, `{
		"nodes": [
			{"id": 1, "type": "LoadImage", "widgets_values": ["C:\\Users\\me\\photo.png"]},
			{"id": 2, "type": "CLIPTextEncode", "widgets_values": ["my secret prompt"]}
		]
	}`)

	out, report := New(rules.PathPolicy()).Sanitize(doc)

	assert.Equal(t, []any{"sanitized_image.png"}, widgets(t, out, 1))
	assert.Equal(t, []any{"my secret prompt"}, widgets(t, out, 2))
	require.Len(t, report.Changes, 1)
	assert.Equal(t, Change{
		NodeID:   1,
		NodeType: "LoadImage",
		Index:    0,
		Kind:     KindStrict,
		Old:      `C:\Users\me\photo.png`,
		New:      "sanitized_image.png",
	}, report.Changes[0])
}

func TestPaths_Fixture(t *testing.T) {
	doc := loadFixture(t, "paths.json")

	out, report := New(rules.PathPolicy()).Sanitize(doc)

	assert.Equal(t, []any{"sanitized_image.png", "image"}, widgets(t, out, 1))
	assert.Equal(t, []any{"my secret prompt"}, widgets(t, out, 2))
	assert.Equal(t, []any{`C:\Users\me\wildcards\dogs.txt`, json.Number("1024")}, widgets(t, out, 3))
	assert.Equal(t, []any{"juggernautXL_v9.safetensors"}, widgets(t, out, 4))
	assert.Equal(t, []any{"sanitized_image.png", json.Number("0"), "fixed", "", "", "", "keep"}, widgets(t, out, 5))
	assert.Equal(t, []any{"Download from https://example.com/models, then (optionally) rename"}, widgets(t, out, 7))
	assert.Equal(t, []any{"render_"}, widgets(t, out, 8))
	assert.Nil(t, widgets(t, out, 9))

	kinds := map[ChangeKind]int{}
	for _, c := range report.Changes {
		kinds[c.Kind]++
	}
	assert.Equal(t, map[ChangeKind]int{KindStrict: 5, KindFlatten: 2}, kinds)
	assert.Equal(t, rules.ModePaths, report.Mode)
}

func TestPaths_ExcludedNodesAreByteIdentical(t *testing.T) {
	before := loadFixture(t, "paths.json")
	after, _ := New(rules.PathPolicy()).Sanitize(before.Clone())

	excluded := map[workflow.NodeID]bool{2: true, 3: true}
	beforeIdx := workflow.NewIndex(before)
	for _, n := range after.Nodes() {
		id, _ := n.ID()
		if !excluded[id] {
			continue
		}
		orig, ok := beforeIdx.Node(id)
		require.True(t, ok)
		assert.Equal(t, encodeNode(t, orig), encodeNode(t, n), "node %d changed", id)
	}
}

func TestPaths_StrictIgnoresOutOfRangeIndices(t *testing.T) {
	doc := decode(t, `{"nodes": [
		{"id": 1, "type": "SDPromptReader", "widgets_values": ["in.png", 3]},
		{"id": 2, "type": "SDBatchLoader", "widgets_values": [null, "x", "y", true]},
		{"id": 3, "type": "LoraLoader"},
		{"id": 4, "type": "LoadImage", "widgets_values": []}
	]}`)

	out, report := New(rules.PathPolicy()).Sanitize(doc)

	assert.Equal(t, []any{"sanitized_image.png", json.Number("3")}, widgets(t, out, 1))
	assert.Equal(t, []any{"sanitized_input_path/", "x", "y", "sanitized_image.png"}, widgets(t, out, 2))
	assert.Nil(t, widgets(t, out, 3))
	assert.Empty(t, widgets(t, out, 4))
	assert.Len(t, report.Changes, 3)
}

func TestPaths_StrictReplacesRegardlessOfContent(t *testing.T) {
	doc := decode(t, `{"nodes": [
		{"id": 1, "type": "LoraLoader", "widgets_values": [{"nested": "obj"}, 1.0, 1.0]}
	]}`)

	out, report := New(rules.PathPolicy()).Sanitize(doc)

	assert.Equal(t, "sanitized_lora.safetensors", widgets(t, out, 1)[0])
	require.Len(t, report.Changes, 1)
	assert.Equal(t, map[string]any{"nested": "obj"}, report.Changes[0].Old)
}

func TestPaths_StrictNodesAreNotFlattened(t *testing.T) {
	doc := decode(t, `{"nodes": [
		{"id": 1, "type": "LoadImage", "widgets_values": ["a/b.png", "upload/dir/x"]}
	]}`)

	out, _ := New(rules.PathPolicy()).Sanitize(doc)

	assert.Equal(t, []any{"sanitized_image.png", "upload/dir/x"}, widgets(t, out, 1))
}

func TestPaths_UnmentionedValuesRoundTrip(t *testing.T) {
	doc := loadFixture(t, "paths.json")
	orig := doc.Clone()

	out, _ := New(rules.PathPolicy()).Sanitize(doc)

	// Everything except widgets_values is untouched, including unknown keys.
	strip := func(d *workflow.Document) map[string]any {
		c := d.Clone()
		for _, n := range c.Nodes() {
			delete(n.Raw(), "widgets_values")
		}
		return c.Raw()
	}
	if diff := cmp.Diff(strip(orig), strip(out)); diff != "" {
		t.Fatalf("non-widget content changed (-want +got):\n%s", diff)
	}

	// KSampler values keep position and literal form.
	assert.Equal(t, widgets(t, orig, 6), widgets(t, out, 6))
}

func TestPrompts_Fixture(t *testing.T) {
	doc := loadFixture(t, "prompts.json")

	out, report := New(rules.PromptPolicy()).Sanitize(doc)

	assert.Equal(t, []any{"sanitized_checkpoint.safetensors"}, widgets(t, out, 1))
	assert.Equal(t, []any{""}, widgets(t, out, 2))
	assert.Equal(t, []any{""}, widgets(t, out, 3))
	assert.Equal(t, []any{", "}, widgets(t, out, 4))
	assert.Equal(t, []any{"foo", "bar"}, widgets(t, out, 5))
	assert.Equal(t, []any{"unrelated encoder text"}, widgets(t, out, 7), "encoders not feeding a generator are kept")
	assert.Empty(t, widgets(t, out, 8))
	assert.Equal(t, []any{`C:\not\touched.png`}, widgets(t, out, 9), "prompt pipeline never flattens")

	require.Len(t, report.Changes, 3)
	assert.Equal(t, KindStrict, report.Changes[0].Kind)
	assert.Equal(t, workflow.NodeID(2), report.Changes[1].NodeID)
	assert.Equal(t, KindClear, report.Changes[1].Kind)
	assert.Equal(t, "portrait of my neighbour", report.Changes[1].Old)
	assert.Equal(t, workflow.NodeID(3), report.Changes[2].NodeID)
}

func TestPaths_DoesNotTrace(t *testing.T) {
	doc := loadFixture(t, "prompts.json")

	out, _ := New(rules.PathPolicy()).Sanitize(doc)

	assert.Equal(t, []any{"portrait of my neighbour"}, widgets(t, out, 2))
	assert.Equal(t, []any{"mine.safetensors"}, widgets(t, out, 1))
}

func TestSanitize_FixedPoint(t *testing.T) {
	for _, tc := range []struct {
		policy  func() *rules.Policy
		fixture string
	}{
		{rules.PathPolicy, "paths.json"},
		{rules.PromptPolicy, "prompts.json"},
		{rules.PathPolicy, "prompts.json"},
		{rules.PromptPolicy, "paths.json"},
	} {
		engine := New(tc.policy())
		first, _ := engine.Sanitize(loadFixture(t, tc.fixture))
		snapshot := first.Clone()

		second, report := engine.Sanitize(first)

		assert.False(t, report.Changed(), "%s on %s: second run changed %+v", report.Mode, tc.fixture, report.Changes)
		if diff := cmp.Diff(snapshot.Raw(), second.Raw()); diff != "" {
			t.Errorf("%s on %s: second run altered document:\n%s", report.Mode, tc.fixture, diff)
		}
	}
}

func TestSanitize_ToleratesMalformedDocuments(t *testing.T) {
	docs := []string{
		`{}`,
		`{"nodes": "nope", "links": 3}`,
		`{"nodes": [1, "two", null, {"type": "LoadImage"}, {"id": "x", "type": "PromptGenerator"}]}`,
		`{"nodes": [{"id": 1, "type": "PromptGenerator", "inputs": "bad"}], "links": [[1]]}`,
		`{"nodes": [{"id": 1, "type": "PromptGenerator", "inputs": [{"name": "prompt", "link": 5}]}], "links": [[5, 99, 0, 1, 0, "STRING"]]}`,
	}
	for _, js := range docs {
		for _, p := range []*rules.Policy{rules.PathPolicy(), rules.PromptPolicy()} {
			assert.NotPanics(t, func() {
				_, report := New(p).Sanitize(decode(t, js))
				assert.False(t, report.Changed(), "doc %s", js)
			})
		}
	}
}

func TestSanitize_DebugLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	engine := New(rules.PromptPolicy(), WithLogger(zap.New(core)))

	engine.Sanitize(loadFixture(t, "prompts.json"))

	assert.Equal(t, 1, logs.FilterMessage("Tracing upstream from generator").Len())
	assert.Equal(t, 2, logs.FilterMessage("Cleared upstream text").Len())

	core, logs = observer.New(zapcore.DebugLevel)
	New(rules.PathPolicy(), WithLogger(zap.New(core))).Sanitize(loadFixture(t, "paths.json"))
	assert.Equal(t, 2, logs.FilterMessage("Skipping excluded node").Len())
}

func TestWithLogger_NilKeepsNop(t *testing.T) {
	e := New(rules.PathPolicy(), WithLogger(nil))
	require.NotNil(t, e.logger)
	assert.Equal(t, rules.ModePaths, e.policy.Mode)
}

func encodeNode(t *testing.T, n workflow.Node) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(n.Raw()))
	return buf.String()
}
