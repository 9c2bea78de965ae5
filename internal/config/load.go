package config

import (
	"fmt"
	"os"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	pipelinederrors "github.com/pipelined/pipelined/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	yamlLineRegex = regexp.MustCompile(`line (\d+)`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New()
	})
	return validateInst
}

// Load reads, decodes, and validates the runner configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pipelinederrors.NewConfigError(path, 0, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, pipelinederrors.NewConfigError(path, extractLine(err), err)
	}

	if err := validatorInstance().Struct(&cfg); err != nil {
		return nil, pipelinederrors.NewConfigError(path, 0, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, pipelinederrors.NewConfigError(path, 0, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Runner.MaxRunningJobs == 0 {
		cfg.Runner.MaxRunningJobs = 4
	}
	if cfg.Runner.PollIntervalMS == 0 {
		cfg.Runner.PollIntervalMS = 25
	}
	if cfg.Runner.JobLogSize == 0 {
		cfg.Runner.JobLogSize = 200
	}
	if cfg.Runner.MaxWorkers == 0 {
		cfg.Runner.MaxWorkers = 8
	}
	if cfg.Runner.FragmentSize == 0 {
		cfg.Runner.FragmentSize = 1 << 20
	}
	if cfg.Runner.BlobBufferSize == 0 {
		cfg.Runner.BlobBufferSize = 4
	}
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}
	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}
	var line int
	if _, scanErr := fmt.Sscanf(matches[1], "%d", &line); scanErr != nil {
		return 0
	}
	return line
}
