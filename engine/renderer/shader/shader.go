// Package shader turns WGSL source into the SPIR-V words a Device accepts.
package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

// EntryPointName is the entry point every pipeline stage uses.
const EntryPointName = "main"

var (
	ErrCompile           = errors.New("shader compilation failed")
	ErrInvalidSPIRV      = errors.New("invalid SPIR-V binary")
	ErrMissingEntryPoint = errors.New("missing entry point")
)

type Options struct {
	// Debug keeps OpName/OpLine instructions in the output.
	Debug bool
	// EntryPoint defaults to EntryPointName.
	EntryPoint string
}

// Compile compiles source for stage and checks that the result exposes a
// "main" entry point for that stage. Nothing is cached.
func Compile(stage hal.ShaderStage, source string) ([]uint32, error) {
	return CompileWithOptions(stage, source, Options{})
}

func CompileWithOptions(stage hal.ShaderStage, source string, opts Options) ([]uint32, error) {
	if opts.EntryPoint == "" {
		opts.EntryPoint = EntryPointName
	}

	nagaOpts := naga.DefaultOptions()
	nagaOpts.Debug = opts.Debug

	spirvBytes, err := naga.CompileWithOptions(source, nagaOpts)
	if err != nil {
		err = fmt.Errorf("%w: %s stage: %v", ErrCompile, stage, err)
		core.LogError("%s", err)
		return nil, err
	}

	words, err := Words(spirvBytes)
	if err != nil {
		return nil, err
	}
	if err := Verify(stage, words, opts.EntryPoint); err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	core.LogDebug("Compiled %s shader to %d SPIR-V words.", stage, len(words))
	return words, nil
}

// Words folds little-endian SPIR-V bytes into 32-bit words.
func Words(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of words", ErrInvalidSPIRV, len(b))
	}
	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteIndex := i * 4
		byteCode[i] = uint32(b[byteIndex]) |
			uint32(b[byteIndex+1])<<8 |
			uint32(b[byteIndex+2])<<16 |
			uint32(b[byteIndex+3])<<24
	}
	return byteCode, nil
}
