//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the app with config.toml.
func (Run) App() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run prism...")
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "config.toml"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the app with validation layers and debug logging.
func (Run) Debug() error {
	if err := buildShaders(); err != nil {
		return err
	}
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "config.debug.toml"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs every unit test. None of them need a GPU.
func Test() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}
