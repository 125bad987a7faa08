package action_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/glance/internal/action"
)

const sampleDoc = `{
  "version": 2,
  "metadata": {"author": "me"},
  "actions": [
    {
      "id": "copy-path",
      "description": "Copy file path",
      "key": "ctrl+y",
      "alternativeKeys": ["Y", ""],
      "script": "echo {{filePath}}",
      "when": {"fileTypes": [".go"], "hasSelection": false, "minLines": 1},
      "enabled": false,
      "unknownField": true
    }
  ],
  "keyBindings": {"ctrl+p": "copy-path"},
  "environment": {"variables": {"EDITOR": "vi"}, "timeout": 1500, "shell": "/bin/bash"}
}`

func TestConfigDecode(t *testing.T) {
	var cfg action.Config
	require.NoError(t, json.Unmarshal([]byte(sampleDoc), &cfg))

	assert.Equal(t, action.Version("2"), cfg.Version)
	assert.Equal(t, "me", cfg.Metadata["author"])
	require.Len(t, cfg.Actions, 1)

	def := cfg.Action("copy-path")
	require.NotNil(t, def)
	assert.False(t, def.IsEnabled())
	assert.Equal(t, []string{"ctrl+y", "Y"}, def.Keys())
	require.NotNil(t, def.When)
	assert.Equal(t, []string{".go"}, def.When.FileTypes)

	assert.Equal(t, "copy-path", cfg.KeyBindings["ctrl+p"])
	assert.Equal(t, 1500*time.Millisecond, cfg.Environment.Timeout())
	assert.Equal(t, "/bin/bash", cfg.Environment.Shell)
	assert.Nil(t, cfg.Action("missing"))
}

func TestConfigClone(t *testing.T) {
	var cfg action.Config
	require.NoError(t, json.Unmarshal([]byte(sampleDoc), &cfg))

	cp := cfg.Clone()
	cp.Actions[0].ID = "other"
	cp.KeyBindings["ctrl+p"] = "other"
	cp.Environment.Variables["EDITOR"] = "nano"
	*cp.Environment.TimeoutMS = 1

	assert.Equal(t, "copy-path", cfg.Actions[0].ID)
	assert.Equal(t, "copy-path", cfg.KeyBindings["ctrl+p"])
	assert.Equal(t, "vi", cfg.Environment.Variables["EDITOR"])
	assert.Equal(t, 1500, *cfg.Environment.TimeoutMS)
}

func TestDefinitionDefaults(t *testing.T) {
	d := action.Definition{ID: "x", Description: "Do x"}
	assert.True(t, d.IsEnabled())
	assert.True(t, d.IsBuiltin())
	assert.Equal(t, "Do x", d.DisplayName())
	assert.Contains(t, d.ConfirmationPrompt(), "Do x")

	d.ConfirmPrompt = "Really?"
	assert.Equal(t, "Really?", d.ConfirmationPrompt())

	assert.True(t, action.IDPattern.MatchString("copy_path-2"))
	assert.False(t, action.IDPattern.MatchString("copy path"))
}

func intp(n int) *int    { return &n }
func boolp(b bool) *bool { return &b }

func TestWhenMatches(t *testing.T) {
	facts := action.Facts{
		FileName:     "/src/main.go",
		Language:     "Go",
		HasSelection: true,
		TotalLines:   120,
		Mode:         action.ModeInteractive,
	}

	tests := []struct {
		name string
		when *action.When
		want bool
	}{
		{"nil", nil, true},
		{"empty", &action.When{}, true},
		{"ext with dot", &action.When{FileTypes: []string{".go"}}, true},
		{"ext bare", &action.When{FileTypes: []string{"GO"}}, true},
		{"language", &action.When{FileTypes: []string{"go"}}, true},
		{"other type", &action.When{FileTypes: []string{"md", "txt"}}, false},
		{"selection", &action.When{HasSelection: boolp(true)}, true},
		{"no selection", &action.When{HasSelection: boolp(false)}, false},
		{"min ok", &action.When{MinLines: intp(100)}, true},
		{"min fail", &action.When{MinLines: intp(121)}, false},
		{"max fail", &action.When{MaxLines: intp(119)}, false},
		{"mode any", &action.When{Mode: action.ModeAny}, true},
		{"mode same", &action.When{Mode: action.ModeInteractive}, true},
		{"mode static", &action.When{Mode: action.ModeStatic}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.when.Matches(facts))
		})
	}
}

func TestWhenMatchesLanguageOnly(t *testing.T) {
	w := &action.When{FileTypes: []string{"markdown"}}
	assert.True(t, w.Matches(action.Facts{FileName: "README", Language: "Markdown"}))
	assert.False(t, w.Matches(action.Facts{FileName: "README"}))
}

func TestWhenStaticMode(t *testing.T) {
	w := &action.When{Mode: action.ModeStatic}
	assert.True(t, w.Matches(action.Facts{Mode: action.ModeStatic}))
	assert.False(t, (&action.When{Mode: action.ModeInteractive}).Matches(action.Facts{Mode: action.ModeStatic}))
}
