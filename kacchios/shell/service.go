// Package shell is the serial command console: a line-oriented REPL
// over the engine's byte sink dispatching to the core operations.
package shell

import (
	"sync"

	"github.com/google/shlex"

	"kacchi/kacchios/console"
	"kacchi/kacchios/mem"
	"kacchi/kacchios/proc"
	"kacchi/kacchios/sched"
)

const maxLine = 128

// Service owns the prompt loop. Commands run while holding the engine
// monitor so a concurrent clock never observes a half-applied
// operation.
type Service struct {
	con *console.Console
	mm  *mem.Manager
	pm  *proc.Manager
	sc  *sched.Scheduler

	mu   sync.Locker
	reg  *registry
	line []byte
}

// New wires a shell to the engine. mu is the engine monitor; nil means
// single-threaded operation.
func New(con *console.Console, mm *mem.Manager, pm *proc.Manager, sc *sched.Scheduler, mu sync.Locker) (*Service, error) {
	s := &Service{con: con, mm: mm, pm: pm, sc: sc, mu: mu}
	s.reg = newRegistry()
	if err := registerCommands(s.reg); err != nil {
		return nil, err
	}
	return s, nil
}

// Run reads and executes commands until the input device fails.
func (s *Service) Run() {
	for {
		s.con.PutString("kacchiOS> ")
		line, ok := s.readLine()
		if !ok {
			return
		}
		if line == "" {
			continue
		}
		s.Execute(line)
	}
}

// readLine applies the console line discipline: echo, backspace, and a
// fixed length limit.
func (s *Service) readLine() (string, bool) {
	s.line = s.line[:0]
	for {
		b, ok := s.con.GetByte()
		if !ok {
			return "", false
		}
		switch {
		case b == '\r' || b == '\n':
			s.con.PutString("\n")
			return string(s.line), true
		case (b == 0x08 || b == 0x7F) && len(s.line) > 0:
			s.line = s.line[:len(s.line)-1]
			s.con.PutString("\b \b")
		case b >= 0x20 && b < 0x7F && len(s.line) < maxLine-1:
			s.line = append(s.line, b)
			s.con.PutByte(b)
		}
	}
}

// Execute parses and dispatches one command line.
func (s *Service) Execute(line string) {
	args, err := shlex.Split(line)
	if err != nil || len(args) == 0 {
		s.con.PutString("parse error\n")
		return
	}

	cmd, ok := s.reg.resolve(args[0])
	if !ok {
		s.con.PutString("Unknown command: ")
		s.con.PutString(args[0])
		s.con.PutString("\nType 'help' for available commands\n")
		return
	}

	if s.mu != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	if err := cmd.Run(s, args[1:]); err != nil {
		s.con.PutString(err.Error())
		s.con.PutString("\n")
	}
}
