//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/target"
)

type Build mg.Namespace

const shaderDir = "shaders"

var shaderSources = []string{
	"simple_shader.vert",
	"simple_shader.frag",
}

// Compiles the GLSL shaders to SPIR-V with glslc. Up to date binaries are skipped.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the prism binary into bin/.
func (Build) App() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("build", "-o", filepath.Join("bin", "prism"), "."), withStream()); err != nil {
		return err
	}
	return nil
}

func buildShaders() error {
	for _, src := range shaderSources {
		in := filepath.Join(shaderDir, src)
		out := in + ".spv"
		stale, err := target.Path(out, in)
		if err != nil {
			return fmt.Errorf("checking %s: %w", out, err)
		}
		if !stale {
			continue
		}
		if _, err := executeCmd("glslc", withArgs(in, "-o", out), withStream()); err != nil {
			return err
		}
	}
	return nil
}
