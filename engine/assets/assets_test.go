package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/trigon/engine/renderer/hal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadShaderBuiltin(t *testing.T) {
	tests := []struct {
		stage hal.ShaderStage
		path  string
		entry string
	}{
		{hal.ShaderStageVertex, "builtin:" + BuiltinVertexShader, "@vertex"},
		{hal.ShaderStageFragment, "builtin:" + BuiltinFragmentShader, "@fragment"},
	}
	for _, tt := range tests {
		t.Run(tt.stage.String(), func(t *testing.T) {
			src, err := LoadShader(tt.stage, "")
			require.NoError(t, err)
			assert.Equal(t, tt.stage, src.Stage)
			assert.Equal(t, tt.path, src.Path)
			assert.Contains(t, src.Source, tt.entry)
			assert.Contains(t, src.Source, "fn main(")
			assert.False(t, src.LastLoaded.IsZero())
		})
	}
}

func TestLoadShaderFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.wgsl")
	body := "@fragment fn main() -> @location(0) vec4<f32> { return vec4<f32>(0.0, 1.0, 0.0, 1.0); }\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	src, err := LoadShader(hal.ShaderStageFragment, path)
	require.NoError(t, err)
	assert.Equal(t, path, src.Path)
	assert.Equal(t, body, src.Source)
}

func TestLoadShaderErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadShader(hal.ShaderStageVertex, filepath.Join(dir, "shader.spv"))
	assert.ErrorIs(t, err, ErrUnsupportedAsset)

	_, err = LoadShader(hal.ShaderStageVertex, filepath.Join(dir, "missing.wgsl"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadShader(hal.ShaderStage(42), "")
	assert.Error(t, err)
}
