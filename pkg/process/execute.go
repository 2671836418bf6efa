package process

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/game-tools/gsm-host-go/pkg/errors"
	"github.com/game-tools/gsm-host-go/pkg/logging"
)

// ExecutionConfig describes how to launch a server executable. It is
// embedded in plugin config documents, hence the JSON tags.
type ExecutionConfig struct {
	ExecutablePath   string   `json:"executablePath"`
	Args             []string `json:"args,omitempty"`
	Environment      []string `json:"environment,omitempty"`
	WorkingDirectory string   `json:"workingDirectory,omitempty"`
	LogFile          string   `json:"logFile,omitempty"`
}

// Execute launches the configured executable in its own process group
// and returns a Handle owning the exit notification. The context only
// gates the launch; the process outlives it and is torn down through
// the returned handle.
func Execute(ctx context.Context, execution ExecutionConfig, id string, logger logging.Logger) (Handle, error) {
	if ctx == nil {
		return nil, errors.NewValidationError("context cannot be nil", nil).WithContext("id", id)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelledError("process launch cancelled", err).WithContext("id", id)
	}
	if execution.ExecutablePath == "" {
		return nil, errors.NewValidationError("executable path cannot be empty", nil).WithContext("id", id)
	}

	if err := ensureExecutable(execution.ExecutablePath); err != nil {
		return nil, err
	}

	workDir := execution.WorkingDirectory
	if workDir == "" {
		absPath, err := filepath.Abs(execution.ExecutablePath)
		if err != nil {
			return nil, errors.NewIOError("failed to get absolute path", err).WithContext("id", id).WithContext("executable_path", execution.ExecutablePath)
		}
		workDir = filepath.Dir(absPath)
	}

	logger.Debugf("Executing process, id: %s, executable path: '%s', args: %v, working directory: '%s'",
		id, execution.ExecutablePath, execution.Args, workDir)

	cmd := exec.Command(execution.ExecutablePath, execution.Args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), execution.Environment...)

	// Platform-specific setup lives in execute_unix.go / execute_windows.go
	setupProcessAttributes(cmd)

	if execution.LogFile != "" {
		logSink, err := os.OpenFile(execution.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, errors.NewIOError("failed to open process log file", err).WithContext("id", id).WithContext("log_file", execution.LogFile)
		}
		cmd.Stdout = logSink
		cmd.Stderr = logSink
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.NewProcessStartError("failed to start the process", err).WithContext("id", id).WithContext("executable_path", execution.ExecutablePath)
	}

	logger.Infof("Process started, id: %s, PID: %d", id, cmd.Process.Pid)

	return NewHandle(cmd), nil
}

// ensureExecutable checks if a file is executable and makes it executable if it's not
func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.NewIOError("executable does not exist", err).WithContext("path", path)
	}

	// On Windows, executability is determined by file extension
	if runtime.GOOS == "windows" {
		return nil
	}

	mode := info.Mode()
	if mode&0111 != 0 {
		return nil
	}

	if err := os.Chmod(path, mode|0111); err != nil {
		return errors.NewFileSystemError("failed to make file executable", err).WithContext("path", path)
	}

	return nil
}
