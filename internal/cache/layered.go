package cache

import "time"

// Layered reads through memory first, then disk, promoting disk hits into
// memory. Writes go to both layers.
type Layered struct {
	memory *Memory
	disk   *Disk
}

// NewLayered combines a memory and a disk cache.
func NewLayered(memory *Memory, disk *Disk) *Layered {
	return &Layered{memory: memory, disk: disk}
}

// Get checks memory, then disk.
func (c *Layered) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}
	if val, found := c.disk.Get(key); found {
		_ = c.memory.Set(key, val, 0)
		return val, true
	}
	return nil, false
}

// Set stores in both layers.
func (c *Layered) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	return c.disk.Set(key, value, ttl)
}

// Delete removes from both layers.
func (c *Layered) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.disk.Delete(key)
}

// Clear empties both layers.
func (c *Layered) Clear() error {
	_ = c.memory.Clear()
	return c.disk.Clear()
}
