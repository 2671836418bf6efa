// Package genericsrv implements the built-in "generic" server type: an
// arbitrary executable managed through the standard capability
// contract. It has no download or patch pipeline; the binaries are
// whatever the operator placed in the install directory.
package genericsrv

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/game-tools/gsm-host-go/pkg/errors"
	"github.com/game-tools/gsm-host-go/pkg/gameserver"
	"github.com/game-tools/gsm-host-go/pkg/logging"
	"github.com/game-tools/gsm-host-go/pkg/process"
)

// TypeName is the discriminator for generic executable servers.
const TypeName = "generic"

// Document is the full persisted config shape for a generic server.
type Document struct {
	gameserver.Config

	Execution process.ExecutionConfig `json:"execution"`

	// Version is reported as the latest available version; generic
	// servers have no upstream to query.
	Version string `json:"version,omitempty"`

	// StopTimeoutSeconds bounds the wait for graceful shutdown before
	// the process is killed. Zero means the default of 20 seconds.
	StopTimeoutSeconds int `json:"stopTimeoutSeconds,omitempty"`
}

type Server struct {
	doc    Document
	logger logging.Logger

	mutex sync.Mutex
	proc  process.Handle
}

// Register adds the generic type to a registry.
func Register(registry *gameserver.TypeRegistry, logger logging.Logger) error {
	return registry.Register(TypeName, func() gameserver.Server {
		return New(logger)
	})
}

func New(logger logging.Logger) *Server {
	s := &Server{logger: logger}
	s.doc.Type = TypeName
	return s
}

// NewWithDocument builds a generic server from an in-memory document,
// used when creating instances programmatically rather than from disk.
func NewWithDocument(doc Document, logger logging.Logger) *Server {
	doc.Type = TypeName
	return &Server{doc: doc, logger: logger}
}

func (s *Server) Config() *gameserver.Config {
	return &s.doc.Config
}

func (s *Server) Document() interface{} {
	return &s.doc
}

func (s *Server) Process() process.Handle {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.proc
}

func (s *Server) setProcess(h process.Handle) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.proc = h
}

func (s *Server) Create(ctx context.Context) error {
	// Nothing to download; the executable is operator-provided.
	return nil
}

func (s *Server) Update(ctx context.Context) error {
	return nil
}

func (s *Server) Delete(ctx context.Context) error {
	return nil
}

func (s *Server) Start(ctx context.Context) error {
	if s.Process() != nil && s.Process().Alive() {
		return errors.NewConflictError("process already running", nil).WithContext("id", s.doc.Basic.ID)
	}

	execution := s.doc.Execution
	if execution.WorkingDirectory == "" {
		execution.WorkingDirectory = s.doc.Basic.Directory
	}
	if !filepath.IsAbs(execution.ExecutablePath) && execution.ExecutablePath != "" {
		execution.ExecutablePath = filepath.Join(s.doc.Basic.Directory, execution.ExecutablePath)
	}

	handle, err := process.Execute(ctx, execution, s.doc.Basic.ID, s.logger)
	if err != nil {
		return err
	}

	s.setProcess(handle)
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	handle := s.Process()
	if handle == nil {
		return nil
	}

	if !handle.Alive() {
		s.setProcess(nil)
		return nil
	}

	if err := handle.Terminate(); err != nil {
		s.logger.Warnf("Failed to send termination signal, id: %s, pid: %d, error: %v",
			s.doc.Basic.ID, handle.Pid(), err)
	}

	timeout := time.Duration(s.doc.StopTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	select {
	case <-handle.Exited():
		s.setProcess(nil)
		return nil
	case <-time.After(timeout):
		s.logger.Warnf("Process did not stop within %v, killing, id: %s, pid: %d",
			timeout, s.doc.Basic.ID, handle.Pid())
	case <-ctx.Done():
		return errors.NewCancelledError("stop cancelled", ctx.Err()).WithContext("id", s.doc.Basic.ID)
	}

	if err := handle.Kill(); err != nil {
		return errors.NewPluginError("failed to kill process after stop timeout", err).WithContext("pid", handle.Pid())
	}
	<-handle.Exited()
	s.setProcess(nil)
	return nil
}

func (s *Server) GetLatestVersion(ctx context.Context) (string, error) {
	if s.doc.Version == "" {
		return "", errors.NewPluginError("no version source configured", nil).WithContext("type", TypeName)
	}
	return s.doc.Version, nil
}
