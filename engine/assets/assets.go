// Package assets resolves the shader sources the renderer compiles at startup.
// An empty path selects the triangle shaders embedded in the binary.
package assets

import (
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

//go:embed shaders/*.wgsl
var builtin embed.FS

const (
	BuiltinVertexShader   = "shaders/triangle.vert.wgsl"
	BuiltinFragmentShader = "shaders/triangle.frag.wgsl"
)

var ErrUnsupportedAsset = errors.New("unsupported asset type")

type AssetType int

const (
	AssetTypeNone AssetType = iota
	AssetTypeShaderSource
)

type ShaderSource struct {
	Stage hal.ShaderStage
	// Path is the file the source came from, prefixed with "builtin:" for the
	// embedded shaders.
	Path       string
	Source     string
	LastLoaded time.Time
}

// LoadShader reads the WGSL source for stage. path may be empty, in which case
// the embedded default for that stage is returned.
func LoadShader(stage hal.ShaderStage, path string) (*ShaderSource, error) {
	var loader Loader = &FileLoader{}
	if path == "" {
		loader = &EmbeddedLoader{FS: builtin}
		path = builtinPath(stage)
		if path == "" {
			return nil, fmt.Errorf("no builtin shader for %s stage", stage)
		}
	}

	if determineAssetType(path) != AssetTypeShaderSource {
		err := fmt.Errorf("%w: %s", ErrUnsupportedAsset, path)
		core.LogError("%s", err)
		return nil, err
	}

	data, err := loader.Load(path)
	if err != nil {
		err = fmt.Errorf("failed to load %s shader: %w", stage, err)
		core.LogError("%s", err)
		return nil, err
	}

	src := &ShaderSource{
		Stage:      stage,
		Path:       loader.Name(path),
		Source:     string(data),
		LastLoaded: time.Now(),
	}
	core.LogDebug("loaded %s shader from %s (%d bytes)", stage, src.Path, len(data))
	return src, nil
}

func builtinPath(stage hal.ShaderStage) string {
	switch stage {
	case hal.ShaderStageVertex:
		return BuiltinVertexShader
	case hal.ShaderStageFragment:
		return BuiltinFragmentShader
	default:
		return ""
	}
}

func determineAssetType(path string) AssetType {
	switch filepath.Ext(path) {
	case ".wgsl":
		return AssetTypeShaderSource
	default:
		return AssetTypeNone
	}
}
