package sanitize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlattenPath(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		changed bool
	}{
		{"windows path", `C:\models\loras\my_lora.safetensors`, "my_lora.safetensors", true},
		{"posix path", "/home/me/comfy/input/photo.png", "photo.png", true},
		{"relative subfolder", "SDXL/juggernaut.safetensors", "juggernaut.safetensors", true},
		{"trailing separator", "a/b/c/", "c", true},
		{"repeated trailing separators", `D:\inputs\\`, "inputs", true},
		{"mixed separators", `C:/Users\me/out\`, "out", true},
		{"prose with separator", "a dog, sitting (on a chair) w/ hat", "a dog, sitting (on a chair) w/ hat", false},
		{"with-abbreviation", "cats w/ hats/dogs", "cats w/ hats/dogs", false},
		{"comma", "a/b,c", "a/b,c", false},
		{"parenthesis", "(masterpiece)/x", "(masterpiece)/x", false},
		{"closing parenthesis", "x/y)", "x/y)", false},
		{"newline", "line one/\nline two", "line one/\nline two", false},
		{"plain filename", "model.safetensors", "model.safetensors", false},
		{"empty", "", "", false},
		{"lone separator", "/", "", true},
		{"slash without w/ spacing", "with/without", "without", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := FlattenPath(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestFlattenPath_Idempotent(t *testing.T) {
	inputs := []string{
		`C:\models\loras\my_lora.safetensors`,
		"a/b/c/",
		`\\server\share\dir\\`,
		"a dog, sitting (on a chair) w/ hat",
		"/",
		"plain",
	}
	for _, in := range inputs {
		once, _ := FlattenPath(in)
		twice, changed := FlattenPath(once)
		assert.Equal(t, once, twice, "input %q", in)
		assert.False(t, changed, "second pass must be a no-op for %q", in)
	}
}

func TestFlattenValue_NonStrings(t *testing.T) {
	for _, v := range []any{json.Number("42"), nil, true, []any{"a/b"}, map[string]any{"p": "a/b"}} {
		got, changed := FlattenValue(v)
		assert.Equal(t, v, got)
		assert.False(t, changed)
	}

	got, changed := FlattenValue("x/y")
	assert.Equal(t, "y", got)
	assert.True(t, changed)
}

func TestHeuristicPredicates(t *testing.T) {
	assert.True(t, LooksLikePath(`a\b`))
	assert.True(t, LooksLikePath("a/b"))
	assert.False(t, LooksLikePath("ab"))

	assert.True(t, LooksLikeText("a\nb"))
	assert.True(t, LooksLikeText("red, blue"))
	assert.True(t, LooksLikeText("(x"))
	assert.True(t, LooksLikeText("x)"))
	assert.True(t, LooksLikeText("girl w/ umbrella"))
	assert.False(t, LooksLikeText("w/o spaces"))
	assert.False(t, LooksLikeText("dir/file.png"))
}
