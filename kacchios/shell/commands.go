package shell

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"kacchi/kacchios/proc"
)

// Entry address handed to shell-created processes. Execution is
// simulated, so a fixed text address serves every process.
const demoEntry = 0x00100000

func registerCommands(r *registry) error {
	for _, cmd := range []command{
		{Name: "help", Usage: "help", Desc: "Show this help message.", Run: cmdHelp},
		{Name: "memstats", Usage: "memstats", Desc: "Display memory statistics.", Run: cmdMemStats},
		{Name: "memtest", Usage: "memtest", Desc: "Run memory allocation scenarios.", Run: cmdMemTest},
		{Name: "ps", Usage: "ps", Desc: "Print process table and scheduler status.", Run: cmdPS},
		{Name: "proctest", Usage: "proctest", Desc: "Run process manager scenarios.", Run: cmdProcTest},
		{Name: "create", Usage: "create <name> <priority> <ticks>", Desc: "Create a process with a run budget.", Run: cmdCreate},
		{Name: "tick", Usage: "tick [n]", Desc: "Advance the scheduler n ticks (default 1).", Run: cmdTick},
		{Name: "kill", Usage: "kill <pid>", Desc: "Terminate a process.", Run: cmdKill},
		{Name: "info", Usage: "info <pid>", Desc: "Print process detail.", Run: cmdInfo},
		{Name: "schedstats", Usage: "schedstats", Desc: "Print scheduler statistics.", Run: cmdSchedStats},
		{Name: "schedconf", Usage: "schedconf", Desc: "Print scheduler configuration.", Run: cmdSchedConf},
		{Name: "clear", Usage: "clear", Desc: "Clear the screen.", Run: cmdClear},
	} {
		if err := r.register(cmd); err != nil {
			return err
		}
	}
	return nil
}

// parsePriority accepts full names, first letters, and numeric levels,
// case-insensitively.
func parsePriority(tok string) (proc.Priority, bool) {
	switch strings.ToLower(tok) {
	case "critical", "c", "3":
		return proc.PriorityCritical, true
	case "high", "h", "2":
		return proc.PriorityHigh, true
	case "normal", "n", "1":
		return proc.PriorityNormal, true
	case "low", "l", "0":
		return proc.PriorityLow, true
	default:
		return proc.PriorityNormal, false
	}
}

func cmdHelp(s *Service, _ []string) error {
	s.con.PutString("Available commands:\n")
	for _, name := range s.reg.names() {
		cmd, _ := s.reg.resolve(name)
		s.con.PutString(fmt.Sprintf("  %-34s %s\n", cmd.Usage, cmd.Desc))
	}
	return nil
}

func cmdMemStats(s *Service, _ []string) error {
	s.mm.PrintStats()
	return nil
}

func cmdPS(s *Service, _ []string) error {
	s.pm.PrintTable()
	st := "Stopped"
	if s.sc.Running() {
		st = "Running"
	}
	s.con.PutString(fmt.Sprintf("Scheduler: %s, Policy: %s, Tick: %d\n", st, s.sc.Policy(), s.sc.NowTick()))
	return nil
}

func cmdCreate(s *Service, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: create <name> <priority> <ticks>")
	}
	pri, ok := parsePriority(args[1])
	if !ok {
		return fmt.Errorf("create: bad priority %q (critical|high|normal|low or 0-3)", args[1])
	}
	ticks, err := strconv.ParseUint(args[2], 10, 32)
	if err != nil {
		return errors.New("create: invalid tick count")
	}
	p := s.pm.Create(args[0], demoEntry, pri, uint32(ticks))
	if p == nil {
		return errors.New("create failed")
	}
	s.sc.Admit(p)
	return nil
}

func cmdTick(s *Service, args []string) error {
	n := uint64(1)
	if len(args) == 1 {
		v, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil || v == 0 {
			return errors.New("usage: tick [n]")
		}
		n = v
	} else if len(args) > 1 {
		return errors.New("usage: tick [n]")
	}
	for i := uint64(0); i < n; i++ {
		s.sc.Tick()
	}
	return nil
}

func cmdKill(s *Service, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: kill <pid>")
	}
	pid, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return errors.New("kill: invalid pid")
	}
	s.pm.Terminate(uint32(pid))
	return nil
}

func cmdInfo(s *Service, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: info <pid>")
	}
	pid, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return errors.New("info: invalid pid")
	}
	s.pm.PrintInfo(uint32(pid))
	return nil
}

func cmdSchedStats(s *Service, _ []string) error {
	s.sc.PrintStats()
	return nil
}

func cmdSchedConf(s *Service, _ []string) error {
	s.sc.PrintConfig()
	return nil
}

func cmdClear(s *Service, _ []string) error {
	s.con.PutString("\x1b[2J\x1b[H")
	return nil
}
