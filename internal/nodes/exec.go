package nodes

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/pipelined/pipelined/internal/noderegistry"
	"github.com/pipelined/pipelined/internal/pipeline"
)

func init() {
	if err := noderegistry.Register("Exec", NewExec); err != nil {
		panic(err)
	}
}

// execInstance runs an external program over a DataValue-derived input and
// captures its stdout as a Text output: a subprocess transform over
// pipeline data. Not quick: subprocess execution belongs on the worker
// pool, not the scheduler goroutine.
type execInstance struct{}

// NewExec returns the factory registered for the "Exec" node type.
func NewExec(*pipeline.Context) (pipeline.NodeInstance, error) {
	return execInstance{}, nil
}

func (execInstance) Run(ctx context.Context, _ *pipeline.Context, info pipeline.NodeInfo, params map[string]pipeline.ParamValue, inputs pipeline.Inputs) (pipeline.Outputs, error) {
	commandParam, ok := params["command"]
	if !ok {
		return nil, fmt.Errorf("nodes: exec node %q: missing %q param", info.ID, "command")
	}
	command, ok := commandParam.AsString()
	if !ok {
		return nil, fmt.Errorf("nodes: exec node %q: %q param must be a string", info.ID, "command")
	}

	shell, shellArgs, err := determineShell(params)
	if err != nil {
		return nil, fmt.Errorf("nodes: exec node %q: %w", info.ID, err)
	}

	args := append(shellArgs, command)
	cmd := exec.CommandContext(ctx, shell, args...)

	if v, ok := inputs["stdin"]; ok && v != nil {
		switch v.Kind {
		case pipeline.KindText:
			cmd.Stdin = bytes.NewReader([]byte(v.Text()))
		case pipeline.KindBlob:
			data, err := v.Blob().ReadAll(ctx)
			if err != nil {
				return nil, fmt.Errorf("nodes: exec node %q: read stdin blob: %w", info.ID, err)
			}
			cmd.Stdin = bytes.NewReader(data)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := stderr.String()
		if detail == "" {
			detail = stdout.String()
		}
		if detail != "" {
			return nil, fmt.Errorf("nodes: exec node %q: %w: %s", info.ID, err, detail)
		}
		return nil, fmt.Errorf("nodes: exec node %q: %w", info.ID, err)
	}

	return pipeline.Outputs{"stdout": pipeline.NewText(stdout.String())}, nil
}

func determineShell(params map[string]pipeline.ParamValue) (string, []string, error) {
	if shellParam, ok := params["shell"]; ok {
		if shell, ok := shellParam.AsString(); ok && shell != "" {
			return shell, []string{"-c"}, nil
		}
	}

	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C"}, nil
	}
	if path, err := exec.LookPath("bash"); err == nil {
		return path, []string{"-c"}, nil
	}
	if path, err := exec.LookPath("sh"); err == nil {
		return path, []string{"-c"}, nil
	}
	return "", nil, fmt.Errorf("no suitable shell found")
}
