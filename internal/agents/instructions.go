package agents

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const instructionsEnv = "LEARNWEAVE_INSTRUCTIONS_YAML"

//go:embed instructions.yaml
var instructionsFS embed.FS

type instructionSpec struct {
	Version int `yaml:"version"`
	Agents  map[string]struct {
		Description  string `yaml:"description"`
		Instructions string `yaml:"instructions"`
	} `yaml:"agents"`
}

var (
	instrOnce sync.Once
	instr     *instructionSpec
	instrErr  error
)

func loadInstructions() (*instructionSpec, error) {
	instrOnce.Do(func() {
		raw, err := readInstructionsYAML()
		if err != nil {
			instrErr = err
			return
		}
		var spec instructionSpec
		if err := yaml.Unmarshal(raw, &spec); err != nil {
			instrErr = fmt.Errorf("parse agent instructions: %w", err)
			return
		}
		if len(spec.Agents) == 0 {
			instrErr = fmt.Errorf("agent instructions empty")
			return
		}
		instr = &spec
	})
	return instr, instrErr
}

func readInstructionsYAML() ([]byte, error) {
	if p := strings.TrimSpace(os.Getenv(instructionsEnv)); p != "" {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", instructionsEnv, err)
		}
		return raw, nil
	}
	return instructionsFS.ReadFile("instructions.yaml")
}

// Instructions returns the instruction template for the named agent.
func Instructions(agent string) (string, error) {
	spec, err := loadInstructions()
	if err != nil {
		return "", err
	}
	a, ok := spec.Agents[agent]
	if !ok || strings.TrimSpace(a.Instructions) == "" {
		return "", fmt.Errorf("no instructions for agent %q", agent)
	}
	return a.Instructions, nil
}
