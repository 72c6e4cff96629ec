package sched

import (
	"strings"
	"testing"

	"kacchi/hal"
	"kacchi/kacchios/console"
	"kacchi/kacchios/mem"
	"kacchi/kacchios/proc"
)

const testEntry = 0x00100000

func newTestSched(policy Policy) (*Scheduler, *proc.Manager, *mem.Manager, *hal.MemSerial) {
	ser := hal.NewMemSerial("")
	con := console.New(ser)
	mm := mem.New(mem.Config{
		HeapBase:  0x1000,
		HeapSize:  256 * 1024,
		StackSize: 0x1000,
		MaxStacks: 40,
		MaxBlocks: 128,
	}, con)
	pm := proc.New(mm, con)
	s := New(pm, con, policy, 100)
	s.Start()
	return s, pm, mm, ser
}

func tickN(s *Scheduler, n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

func TestPriorityPreemptionOnCreation(t *testing.T) {
	s, pm, _, _ := newTestSched(PolicyPriority)

	a := pm.Create("A", testEntry, proc.PriorityLow, 1000)
	s.Admit(a)
	if pm.Current() != a {
		t.Fatal("idle engine did not pick up the first process")
	}

	tickN(s, 50)
	if a.CPUTime != 50 || a.RemainingTime != 950 {
		t.Fatalf("A cpu=%d remaining=%d; want 50/950", a.CPUTime, a.RemainingTime)
	}
	if a.State != proc.StateCurrent {
		t.Fatalf("A state = %s; want CURRENT", a.State)
	}

	b := pm.Create("B", testEntry, proc.PriorityHigh, 500)
	s.Admit(b)
	if pm.Current() != b {
		t.Fatal("higher-priority creation did not preempt")
	}
	if a.State != proc.StateReady || a.CPUTime != 50 {
		t.Fatalf("A state=%s cpu=%d; want READY/50", a.State, a.CPUTime)
	}
	if got := s.GetStats().ContextSwitches; got != 2 {
		t.Fatalf("context switches = %d; want 2 (idle->A, A->B)", got)
	}
}

func TestAdmitEqualPriorityDoesNotPreempt(t *testing.T) {
	s, pm, _, _ := newTestSched(PolicyPriority)
	a := pm.Create("A", testEntry, proc.PriorityNormal, 0)
	s.Admit(a)
	b := pm.Create("B", testEntry, proc.PriorityNormal, 0)
	s.Admit(b)
	if pm.Current() != a {
		t.Fatal("equal-priority creation preempted the running process")
	}
	if b.State != proc.StateReady {
		t.Fatalf("B state = %s; want READY", b.State)
	}
}

func TestRoundRobinWithinEqualPriority(t *testing.T) {
	s, pm, _, _ := newTestSched(PolicyPriority)

	w1 := pm.Create("W1", testEntry, proc.PriorityNormal, 500)
	s.Admit(w1)
	w2 := pm.Create("W2", testEntry, proc.PriorityNormal, 500)
	s.Admit(w2)
	if pm.Current() != w1 {
		t.Fatal("W1 should run first (FIFO within level)")
	}

	tickN(s, 150) // NORMAL quantum is 150
	if pm.Current() != w2 {
		t.Fatal("quantum expiry did not rotate to W2")
	}
	if w1.CPUTime != 150 || w1.State != proc.StateReady {
		t.Fatalf("W1 cpu=%d state=%s; want 150/READY", w1.CPUTime, w1.State)
	}

	tickN(s, 150)
	if pm.Current() != w1 {
		t.Fatal("second expiry did not rotate back to W1")
	}
	if w2.CPUTime != 150 {
		t.Fatalf("W2 cpu=%d; want 150", w2.CPUTime)
	}
	st := s.GetStats()
	if st.Preemptions != 2 {
		t.Fatalf("preemptions = %d; want 2", st.Preemptions)
	}
}

func TestCompletionAtExactTick(t *testing.T) {
	s, pm, mm, ser := newTestSched(PolicyPriority)

	q := pm.Create("Q", testEntry, proc.PriorityHigh, 100)
	s.Admit(q)
	pid := q.PID

	tickN(s, 99)
	if q.State != proc.StateCurrent || q.CPUTime != 99 {
		t.Fatalf("Q cpu=%d state=%s before completion", q.CPUTime, q.State)
	}

	s.Tick()
	if pm.ByPID(pid) != nil || pm.Count() != 0 {
		t.Fatal("Q survived its required time")
	}
	if pm.Current() != nil {
		t.Fatal("current process set after sole process completed")
	}
	if mm.StackTop(pid) != 0 {
		t.Fatal("stack slot not released on completion")
	}
	if !strings.Contains(ser.Output(), "completed after 100 ticks") {
		t.Fatal("missing completion log line")
	}
}

func TestAgingBoostChainSaturatesAtCritical(t *testing.T) {
	s, pm, _, _ := newTestSched(PolicyPriority)
	s.SetAgingThreshold(2)
	s.SetAgingInterval(10)

	l := pm.Create("L", testEntry, proc.PriorityLow, 0)
	s.Admit(l)
	h := pm.Create("H", testEntry, proc.PriorityHigh, 0)
	s.Admit(h) // preempts L; L waits in the ready queue

	tickN(s, 99)
	if l.Priority != proc.PriorityCritical {
		t.Fatalf("L priority = %s after aging; want CRITICAL", l.Priority)
	}
	if got := s.GetStats().AgingBoosts; got != 3 {
		t.Fatalf("aging boosts = %d; want 3 (LOW->NORMAL->HIGH->CRITICAL)", got)
	}

	// H's quantum (100) expires on the next tick; the boosted L wins.
	s.Tick()
	if pm.Current() != l {
		t.Fatal("boosted process did not take over after quantum expiry")
	}

	// Saturated: with only L left, further checks never boost again.
	pm.Terminate(h.PID)
	tickN(s, 50)
	if got := s.GetStats().AgingBoosts; got != 3 {
		t.Fatalf("aging boosts grew past CRITICAL: %d", got)
	}
}

func TestAgingDisabledNeverBoosts(t *testing.T) {
	s, pm, _, _ := newTestSched(PolicyPriority)
	s.SetAgingThreshold(1)
	s.SetAgingInterval(5)
	s.EnableAging(false)

	l := pm.Create("L", testEntry, proc.PriorityLow, 0)
	s.Admit(l)
	h := pm.Create("H", testEntry, proc.PriorityHigh, 0)
	s.Admit(h)

	tickN(s, 60)
	if l.Priority != proc.PriorityLow || l.Age != 0 {
		t.Fatalf("aging ran while disabled: priority=%s age=%d", l.Priority, l.Age)
	}
}

func TestQuantumClamping(t *testing.T) {
	s, pm, _, _ := newTestSched(PolicyPriority)

	s.SetQuantum(5)
	if got := s.Quantum(); got != 10 {
		t.Fatalf("quantum = %d; want clamp to 10", got)
	}
	s.SetQuantum(5000)
	if got := s.Quantum(); got != 1000 {
		t.Fatalf("quantum = %d; want clamp to 1000", got)
	}

	p := pm.Create("P", testEntry, proc.PriorityNormal, 0)
	s.SetProcessQuantum(p.PID, 3)
	if got := s.ProcessQuantum(p.PID); got != 10 {
		t.Fatalf("process quantum = %d; want 10", got)
	}
	s.SetProcessQuantum(p.PID, 400)
	if got := s.ProcessQuantum(p.PID); got != 400 {
		t.Fatalf("process quantum = %d; want 400", got)
	}
	if got := s.ProcessQuantum(9999); got != 0 {
		t.Fatalf("unknown PID quantum = %d; want 0", got)
	}
}

func TestYieldRotates(t *testing.T) {
	s, pm, _, _ := newTestSched(PolicyRoundRobin)
	a := pm.Create("A", testEntry, proc.PriorityNormal, 0)
	s.Admit(a)
	b := pm.Create("B", testEntry, proc.PriorityNormal, 0)
	s.Admit(b)

	s.Yield()
	if pm.Current() != b {
		t.Fatal("yield did not rotate to the next ready process")
	}
	if got := s.GetStats().VoluntaryYields; got != 1 {
		t.Fatalf("voluntary yields = %d; want 1", got)
	}
}

func TestPreemptionDisabledRunsPastQuantum(t *testing.T) {
	s, pm, _, _ := newTestSched(PolicyPriority)
	s.EnablePreemption(false)

	a := pm.Create("A", testEntry, proc.PriorityNormal, 0)
	s.Admit(a)
	b := pm.Create("B", testEntry, proc.PriorityNormal, 0)
	s.Admit(b)

	tickN(s, 400) // far past the 150-tick NORMAL quantum
	if pm.Current() != a {
		t.Fatal("process was preempted with preemption disabled")
	}
	if a.CPUTime != 400 {
		t.Fatalf("A cpu = %d; want 400", a.CPUTime)
	}
	if got := s.GetStats().Preemptions; got != 0 {
		t.Fatalf("preemptions = %d; want 0", got)
	}
	_ = b
}

func TestStoppedSchedulerIgnoresTicks(t *testing.T) {
	s, pm, _, _ := newTestSched(PolicyPriority)
	s.Stop()
	p := pm.Create("P", testEntry, proc.PriorityNormal, 0)
	s.Admit(p)
	tickN(s, 10)
	if got := s.GetStats().TotalTicks; got != 0 {
		t.Fatalf("total ticks = %d while stopped; want 0", got)
	}
	if p.State != proc.StateReady {
		t.Fatalf("state = %s; want READY (nothing scheduled)", p.State)
	}
}

func TestIdleTicksAccumulate(t *testing.T) {
	s, _, _, _ := newTestSched(PolicyPriority)
	tickN(s, 3)
	st := s.GetStats()
	if st.TotalTicks != 3 || st.IdleTicks != 3 {
		t.Fatalf("ticks = %d idle = %d; want 3/3", st.TotalTicks, st.IdleTicks)
	}
}

func TestContextSwitchTransfersWholeRecord(t *testing.T) {
	s, pm, _, _ := newTestSched(PolicyPriority)

	a := pm.Create("A", testEntry, proc.PriorityNormal, 0)
	s.Admit(a)
	if s.cpu != a.Context {
		t.Fatal("register file not loaded from first process")
	}

	b := pm.Create("B", testEntry, proc.PriorityHigh, 0)
	s.Admit(b)
	if s.cpu != b.Context {
		t.Fatal("register file not loaded from incoming process")
	}
	if a.Context.EAX != 0xAAAA0000|a.PID {
		t.Fatal("outgoing record clobbered across the switch")
	}
}

func TestStatsResetZeroes(t *testing.T) {
	s, pm, _, _ := newTestSched(PolicyPriority)
	p := pm.Create("P", testEntry, proc.PriorityNormal, 0)
	s.Admit(p)
	tickN(s, 5)
	if s.GetStats().TotalTicks == 0 {
		t.Fatal("expected activity before reset")
	}
	s.ResetStats()
	if s.GetStats() != (Stats{}) {
		t.Fatalf("stats after reset = %+v; want zeroes", s.GetStats())
	}
}

func TestEveryPolicySelectsFromReadyQueue(t *testing.T) {
	for _, pol := range []Policy{PolicyRoundRobin, PolicyPriority, PolicyPriorityRR, PolicyFCFS} {
		s, pm, _, _ := newTestSched(pol)
		h := pm.Create("H", testEntry, proc.PriorityHigh, 0)
		s.Admit(h)
		l := pm.Create("L", testEntry, proc.PriorityLow, 0)
		s.Admit(l)
		if pm.Current() != h {
			t.Fatalf("%s: current = %v; want queue head", pol, pm.CurrentPID())
		}
	}
}

func TestSleepingProcessWakesDuringTicks(t *testing.T) {
	s, pm, _, _ := newTestSched(PolicyPriority)
	a := pm.Create("A", testEntry, proc.PriorityNormal, 0)
	s.Admit(a)
	b := pm.Create("B", testEntry, proc.PriorityNormal, 0)
	s.Admit(b)

	pm.Sleep(b.PID, 3)
	if b.State != proc.StateSleeping {
		t.Fatalf("B state = %s; want SLEEPING", b.State)
	}
	tickN(s, 3)
	if b.State != proc.StateReady {
		t.Fatalf("B state = %s after due ticks; want READY", b.State)
	}
}

func TestParsePolicyTokens(t *testing.T) {
	tcs := []struct {
		in   string
		want Policy
		ok   bool
	}{
		{"priority", PolicyPriority, true},
		{"round_robin", PolicyRoundRobin, true},
		{"rr", PolicyRoundRobin, true},
		{"PRIORITY_RR", PolicyPriorityRR, true},
		{" fcfs ", PolicyFCFS, true},
		{"lottery", PolicyPriority, false},
	}
	for _, tc := range tcs {
		got, ok := ParsePolicy(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParsePolicy(%q) = %s/%v; want %s/%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
