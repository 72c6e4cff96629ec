// Package mem manages the machine's fixed physical region: a first-fit
// heap for general allocation and a pool of fixed-size process stacks
// directly above it.
//
// Addresses are uint32 physical addresses; 0 is the null address. No
// operation aborts: failures return 0 and emit a diagnostic line.
package mem

import "kacchi/kacchios/console"

// Config fixes the region layout. The defaults are part of the contract
// with the boot stub and linker; tests may shrink them.
type Config struct {
	HeapBase  uint32
	HeapSize  uint32
	StackSize uint32
	MaxStacks int
	MaxBlocks int
}

// DefaultConfig returns the boot layout: 30 MiB heap at 2 MiB, then
// 32 stacks of 16 KiB.
func DefaultConfig() Config {
	return Config{
		HeapBase:  0x00200000,
		HeapSize:  0x01E00000,
		StackSize: 0x4000,
		MaxStacks: 32,
		MaxBlocks: 1024,
	}
}

// Blocks no larger than the request plus this remainder are handed out
// whole instead of split.
const splitThreshold = 32

type heapBlock struct {
	addr uint32
	size uint32
	free bool
}

type stackSlot struct {
	base uint32
	top  uint32
	size uint32
	pid  uint32
	free bool
}

// Stats is a snapshot of the allocator counters.
type Stats struct {
	TotalHeap   uint32
	UsedHeap    uint32
	FreeHeap    uint32
	TotalStacks uint32
	Allocations uint32
	Stacks      uint32
	Blocks      uint32
}

// Manager owns the heap descriptor array, the stack slot table, and the
// backing bytes of the whole region.
type Manager struct {
	cfg    Config
	con    *console.Console
	region []byte
	blocks []heapBlock
	used   uint32
	slots  []stackSlot
}

// New initializes the region: one free block covering the whole heap,
// every stack slot free.
func New(cfg Config, con *console.Console) *Manager {
	m := &Manager{
		cfg:    cfg,
		con:    con,
		region: make([]byte, cfg.HeapSize+uint32(cfg.MaxStacks)*cfg.StackSize),
		blocks: make([]heapBlock, 0, cfg.MaxBlocks),
		slots:  make([]stackSlot, cfg.MaxStacks),
	}
	m.blocks = append(m.blocks, heapBlock{addr: cfg.HeapBase, size: cfg.HeapSize, free: true})
	for i := range m.slots {
		m.slots[i].free = true
	}

	con.PutString("[MEMORY] Memory manager initialized\n")
	con.PutString("[MEMORY] Heap: 0x")
	con.PutHex32(cfg.HeapBase)
	con.PutString(" - 0x")
	con.PutHex32(cfg.HeapBase + cfg.HeapSize)
	con.PutString(" (")
	con.PutDec32(cfg.HeapSize / 1024 / 1024)
	con.PutString(" MB)\n")
	return m
}

// Config returns the region layout the manager was built with.
func (m *Manager) Config() Config { return m.cfg }

func (m *Manager) index(addr uint32) int {
	return int(addr - m.cfg.HeapBase)
}

// Bytes exposes the backing bytes of [addr, addr+size). Callers own
// staying inside a block they allocated.
func (m *Manager) Bytes(addr, size uint32) []byte {
	i := m.index(addr)
	return m.region[i : i+int(size)]
}

func (m *Manager) findFree(size uint32) *heapBlock {
	for i := range m.blocks {
		if m.blocks[i].free && m.blocks[i].size >= size {
			return &m.blocks[i]
		}
	}
	return nil
}

func (m *Manager) split(b *heapBlock, size uint32) {
	if b.size > size+splitThreshold && len(m.blocks) < m.cfg.MaxBlocks {
		m.blocks = append(m.blocks, heapBlock{addr: b.addr + size, size: b.size - size, free: true})
		b.size = size
	}
}

// coalesce merges adjacent free blocks, compacting the descriptor
// array, until a full pass finds nothing left to merge.
func (m *Manager) coalesce() {
	for merged := true; merged; {
		merged = false
		for i := 0; i < len(m.blocks); i++ {
			if !m.blocks[i].free {
				continue
			}
			for j := 0; j < len(m.blocks); j++ {
				if j == i || !m.blocks[j].free {
					continue
				}
				if m.blocks[j].addr != m.blocks[i].addr+m.blocks[i].size {
					continue
				}
				m.blocks[i].size += m.blocks[j].size
				m.blocks = append(m.blocks[:j], m.blocks[j+1:]...)
				if j < i {
					i--
				}
				j--
				merged = true
			}
		}
	}
}

// Alloc returns the address of a block of at least size bytes, or 0.
func (m *Manager) Alloc(size uint32) uint32 {
	if size == 0 {
		return 0
	}
	size = (size + 3) &^ 3

	b := m.findFree(size)
	if b == nil {
		m.coalesce()
		b = m.findFree(size)
		if b == nil {
			m.con.PutString("[MEMORY] alloc failed: out of memory\n")
			return 0
		}
	}

	m.split(b, size)
	b.free = false
	m.used += b.size
	return b.addr
}

// Free returns a block to the free list and merges neighbours.
// Freeing 0 is a no-op; unknown or already-free addresses only log.
func (m *Manager) Free(addr uint32) {
	if addr == 0 {
		return
	}
	for i := range m.blocks {
		if m.blocks[i].addr != addr {
			continue
		}
		if m.blocks[i].free {
			m.con.PutString("[MEMORY] double free detected\n")
			return
		}
		m.blocks[i].free = true
		m.used -= m.blocks[i].size
		m.coalesce()
		return
	}
	m.con.PutString("[MEMORY] attempt to free invalid pointer\n")
}

// Realloc grows or shrinks an allocation, moving it when the current
// block cannot hold the new size.
func (m *Manager) Realloc(addr, size uint32) uint32 {
	if addr == 0 {
		return m.Alloc(size)
	}
	if size == 0 {
		m.Free(addr)
		return 0
	}

	var old *heapBlock
	for i := range m.blocks {
		if m.blocks[i].addr == addr {
			old = &m.blocks[i]
			break
		}
	}
	if old == nil {
		m.con.PutString("[MEMORY] attempt to realloc invalid pointer\n")
		return 0
	}
	if size <= old.size {
		return addr
	}

	oldSize := old.size
	next := m.Alloc(size)
	if next == 0 {
		return 0
	}
	copy(m.Bytes(next, oldSize), m.Bytes(addr, oldSize))
	m.Free(addr)
	return next
}

// Calloc allocates count*size bytes and zeroes them.
func (m *Manager) Calloc(count, size uint32) uint32 {
	total := count * size
	addr := m.Alloc(total)
	if addr != 0 {
		clear(m.Bytes(addr, total))
	}
	return addr
}

// Defragment runs an explicit coalesce pass.
func (m *Manager) Defragment() {
	m.coalesce()
	m.con.PutString("[MEMORY] Heap defragmented\n")
}

// StackAlloc claims the first free stack slot for pid, zeroes it, and
// returns the top address (stacks grow downward). Returns 0 when the
// pool is exhausted.
func (m *Manager) StackAlloc(pid uint32) uint32 {
	for i := range m.slots {
		if !m.slots[i].free {
			continue
		}
		base := m.cfg.HeapBase + m.cfg.HeapSize + uint32(i)*m.cfg.StackSize
		top := base + m.cfg.StackSize
		m.slots[i] = stackSlot{base: base, top: top, size: m.cfg.StackSize, pid: pid, free: false}
		clear(m.region[m.index(base):m.index(top)])
		return top
	}
	m.con.PutString("[MEMORY] stack alloc failed: no free stack slots\n")
	return 0
}

// StackFree releases the slot owned by pid.
func (m *Manager) StackFree(pid uint32) {
	for i := range m.slots {
		if !m.slots[i].free && m.slots[i].pid == pid {
			m.slots[i] = stackSlot{free: true}
			return
		}
	}
}

// StackBase returns the base address of pid's stack, or 0.
func (m *Manager) StackBase(pid uint32) uint32 {
	for i := range m.slots {
		if !m.slots[i].free && m.slots[i].pid == pid {
			return m.slots[i].base
		}
	}
	return 0
}

// StackTop returns the top address of pid's stack, or 0.
func (m *Manager) StackTop(pid uint32) uint32 {
	for i := range m.slots {
		if !m.slots[i].free && m.slots[i].pid == pid {
			return m.slots[i].top
		}
	}
	return 0
}

// Stats returns a snapshot of the allocator counters.
func (m *Manager) Stats() Stats {
	st := Stats{
		TotalHeap: m.cfg.HeapSize,
		UsedHeap:  m.used,
		FreeHeap:  m.cfg.HeapSize - m.used,
		Blocks:    uint32(len(m.blocks)),
	}
	for i := range m.blocks {
		if !m.blocks[i].free {
			st.Allocations++
		}
	}
	for i := range m.slots {
		if !m.slots[i].free {
			st.Stacks++
		}
	}
	st.TotalStacks = st.Stacks * m.cfg.StackSize
	return st
}

// PrintStats emits the memstats report.
func (m *Manager) PrintStats() {
	st := m.Stats()
	c := m.con
	c.PutString("\n=== Memory Statistics ===\n")
	c.PutString("Heap Total:  ")
	c.PutDec32(st.TotalHeap / 1024)
	c.PutString(" KB\n")
	c.PutString("Heap Used:   ")
	c.PutDec32(st.UsedHeap / 1024)
	c.PutString(" KB\n")
	c.PutString("Heap Free:   ")
	c.PutDec32(st.FreeHeap / 1024)
	c.PutString(" KB\n")
	c.PutString("Allocations: ")
	c.PutDec32(st.Allocations)
	c.PutString("\n")
	c.PutString("Stacks:      ")
	c.PutDec32(st.Stacks)
	c.PutString(" (")
	c.PutDec32(st.TotalStacks / 1024)
	c.PutString(" KB)\n")
	c.PutString("Heap Blocks: ")
	c.PutDec32(st.Blocks)
	c.PutString("\n")
	c.PutString("========================\n\n")
}
