//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Builds the testbed binary into bin/.
func (Build) Testbed() error {
	_, err := executeCmd("go", withArgs("build", "-o", filepath.Join("bin", "lumen"), "."), withStream())
	return err
}

// Validates every GLSL source with glslangValidator.
func (Build) Shaders() error {
	return validateShaders()
}

func validateShaders() error {
	var sources []string
	for _, dir := range shaderDirs {
		for _, ext := range []string{"*.vert", "*.frag"} {
			matches, err := filepath.Glob(filepath.Join(dir, ext))
			if err != nil {
				return err
			}
			sources = append(sources, matches...)
		}
	}
	for _, src := range sources {
		if _, err := executeCmd("glslangValidator", withArgs(src)); err != nil {
			return err
		}
	}
	return nil
}
