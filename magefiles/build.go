//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Runs go mod download and then builds the trigon binary into bin/.
func (Build) Binary() error {
	if _, err := executeCmd("go", withArgs("mod", "download")); err != nil {
		return err
	}
	if err := os.MkdirAll("bin", 0o755); err != nil {
		return err
	}
	out := filepath.Join("bin", "trigon")
	if _, err := executeCmd("go", withArgs("build", "-o", out, "."), withStream()); err != nil {
		return err
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

type Test mg.Namespace

// Runs every package test with the race detector.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "-race", "-count=1", "./..."), withStream())
	return err
}

// Runs the tests that do not need a window or a GPU.
func (Test) Headless() error {
	_, err := executeCmd("go", withArgs("test", "-count=1",
		"./engine/core/...",
		"./engine/config/...",
		"./engine/assets/...",
		"./engine/math/...",
		"./engine/renderer/...",
	), withStream())
	return err
}
