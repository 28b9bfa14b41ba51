//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/spaghettifunk/trigon/engine/assets"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
	"github.com/spaghettifunk/trigon/engine/renderer/shader"
)

type Shaders mg.Namespace

// Compiles the embedded WGSL shaders to SPIR-V and checks their entry points.
func (Shaders) Check() error {
	return checkShaders("", "")
}

// Compiles the given WGSL files the way the engine does at startup.
func (Shaders) Files(vertex, fragment string) error {
	return checkShaders(vertex, fragment)
}

func checkShaders(vertex, fragment string) error {
	for stage, path := range map[hal.ShaderStage]string{
		hal.ShaderStageVertex:   vertex,
		hal.ShaderStageFragment: fragment,
	} {
		src, err := assets.LoadShader(stage, path)
		if err != nil {
			return err
		}
		words, err := shader.Compile(stage, src.Source)
		if err != nil {
			return fmt.Errorf("%s: %w", src.Path, err)
		}
		fmt.Printf("%-8s %s: %d SPIR-V words\n", stage, src.Path, len(words))
	}
	return nil
}
