package diff

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbered(n int, edit func(i int) string) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		line := fmt.Sprint(i)
		if edit != nil {
			line = edit(i)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func TestLines_SingleChange(t *testing.T) {
	lines := Lines("a\nb\nc\n", "a\nB\nc\n")

	assert.Equal(t, []Line{
		{Type: LineContext, Content: "a", OldNum: 1, NewNum: 1},
		{Type: LineRemoved, Content: "b", OldNum: 2},
		{Type: LineAdded, Content: "B", NewNum: 2},
		{Type: LineContext, Content: "c", OldNum: 3, NewNum: 3},
	}, lines)
}

func TestLines_Equal(t *testing.T) {
	for _, l := range Lines("x\ny\n", "x\ny\n") {
		assert.Equal(t, LineContext, l.Type)
	}
	assert.Empty(t, Hunks(Lines("x\ny\n", "x\ny\n"), DefaultContext))
}

func TestHunks_SplitsDistantChanges(t *testing.T) {
	oldText := numbered(10, nil)
	newText := numbered(10, func(i int) string {
		switch i {
		case 1:
			return "X"
		case 10:
			return "Y"
		}
		return fmt.Sprint(i)
	})

	hunks := Hunks(Lines(oldText, newText), 1)
	require.Len(t, hunks, 2)
	assert.Equal(t, "@@ -1,2 +1,2 @@", hunks[0].Header())
	assert.Equal(t, "@@ -9,2 +9,2 @@", hunks[1].Header())
}

func TestHunks_MergesNearbyChanges(t *testing.T) {
	oldText := numbered(10, nil)
	newText := numbered(10, func(i int) string {
		if i == 3 || i == 6 {
			return "changed"
		}
		return fmt.Sprint(i)
	})

	hunks := Hunks(Lines(oldText, newText), 2)
	require.Len(t, hunks, 1)
	assert.Equal(t, "@@ -1,8 +1,8 @@", hunks[0].Header())
}

func TestHunks_PureAddition(t *testing.T) {
	hunks := Hunks(Lines("a\nb\n", "a\nb\nc\n"), 0)
	require.Len(t, hunks, 1)
	assert.Equal(t, "@@ -2,0 +3,1 @@", hunks[0].Header())
}

func TestUnified(t *testing.T) {
	got := Unified("in.json", "out.json", "{\n  \"a\": \"x/y.png\"\n}\n", "{\n  \"a\": \"y.png\"\n}\n")

	assert.Equal(t, `--- in.json
+++ out.json
@@ -1,3 +1,3 @@
 {
-  "a": "x/y.png"
+  "a": "y.png"
 }
`, got)
}

func TestUnified_NoChanges(t *testing.T) {
	assert.Empty(t, Unified("a", "b", "same\n", "same\n"))
}
