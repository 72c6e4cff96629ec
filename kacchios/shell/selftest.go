package shell

import "kacchi/kacchios/proc"

// Built-in scenario suites behind `memtest` and `proctest`. They drive
// the engine through its own public operations and report over the
// console; nothing here bypasses the managers.

func cmdMemTest(s *Service, _ []string) error {
	c := s.con
	mm := s.mm
	c.PutString("\n=== Memory Manager Test ===\n")

	c.PutString("Test 1: Basic allocation...\n")
	p1 := mm.Alloc(1024)
	if p1 != 0 {
		c.PutString("  Allocated 1KB at 0x")
		c.PutHex32(p1)
		c.PutString("\n")
		mm.Free(p1)
		c.PutString("  Freed 1KB\n")
	}

	c.PutString("Test 2: Multiple allocations...\n")
	p2 := mm.Alloc(512)
	p3 := mm.Alloc(2048)
	p4 := mm.Alloc(256)
	c.PutString("  Allocated 512B, 2KB, 256B\n")

	c.PutString("Test 3: Free middle block...\n")
	mm.Free(p3)
	c.PutString("  Freed 2KB block\n")

	c.PutString("Test 4: Reallocate freed space...\n")
	p5 := mm.Alloc(1024)
	c.PutString("  Allocated 1KB in freed space at 0x")
	c.PutHex32(p5)
	c.PutString("\n")

	c.PutString("Test 5: Zeroed allocation...\n")
	arr := mm.Calloc(10, 4)
	if arr != 0 {
		zero := true
		for _, b := range mm.Bytes(arr, 40) {
			if b != 0 {
				zero = false
				break
			}
		}
		c.PutString("  All bytes zero: ")
		if zero {
			c.PutString("YES\n")
		} else {
			c.PutString("NO\n")
		}
		mm.Free(arr)
	}

	c.PutString("Test 6: Stack allocation...\n")
	t1 := mm.StackAlloc(9001)
	t2 := mm.StackAlloc(9002)
	if t1 != 0 && t2 != 0 {
		c.PutString("  Stack 1 top at 0x")
		c.PutHex32(t1)
		c.PutString("\n  Stack 2 top at 0x")
		c.PutHex32(t2)
		c.PutString("\n")
		mm.StackFree(9001)
		mm.StackFree(9002)
		c.PutString("  Freed both stacks\n")
	}

	mm.Free(p2)
	mm.Free(p4)
	mm.Free(p5)

	c.PutString("=== Test Complete ===\n\n")
	mm.PrintStats()
	return nil
}

func cmdProcTest(s *Service, _ []string) error {
	c := s.con
	c.PutString("\n=== Process Manager Test ===\n")

	c.PutString("Test 1: Create three processes...\n")
	a := s.pm.Create("ptest-low", demoEntry, proc.PriorityLow, 40)
	b := s.pm.Create("ptest-norm", demoEntry, proc.PriorityNormal, 40)
	d := s.pm.Create("ptest-high", demoEntry, proc.PriorityHigh, 40)
	if a == nil || b == nil || d == nil {
		c.PutString("  creation failed, aborting\n")
		return nil
	}
	s.sc.Admit(a)
	s.sc.Admit(b)
	s.sc.Admit(d)

	c.PutString("Test 2: Messaging...\n")
	res := s.pm.Send(a.PID, 0xDEADBEEF)
	c.PutString("  send to low: ")
	c.PutString(res.String())
	c.PutString("\n")

	c.PutString("Test 3: Run to completion...\n")
	for i := 0; i < 130; i++ {
		s.sc.Tick()
	}
	s.pm.PrintTable()

	for _, p := range []*proc.Process{a, b, d} {
		if s.pm.ByPID(p.PID) != nil {
			s.pm.Terminate(p.PID)
		}
	}
	c.PutString("=== Test Complete ===\n\n")
	return nil
}
