//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Packages that need a window or a GL context are left out.
var unitPackages = []string{
	"./engine/core/...",
	"./engine/containers/...",
	"./engine/assets/...",
	"./engine/systems/...",
	"./engine/renderer/components/...",
	"./engine/renderer/gpu/...",
	"./engine/renderer/memory/...",
	"./engine/renderer/metadata/...",
	"./engine/renderer/views/...",
	"./engine/renderer",
}

// Runs the unit tests against the in-memory device.
func (Test) Unit() error {
	_, err := executeCmd("go", withArgs(append([]string{"test", "-count=1"}, unitPackages...)...), withStream())
	return err
}

// Runs the unit tests with the race detector.
func (Test) Race() error {
	_, err := executeCmd("go", withArgs(append([]string{"test", "-race", "-count=1"}, unitPackages...)...), withStream())
	return err
}
