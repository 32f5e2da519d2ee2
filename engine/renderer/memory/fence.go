package memory

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

// WaitPolicy bounds how long the CPU blocks on a fence. The first poll
// never blocks; each retry flushes and waits up to TimeoutNs.
type WaitPolicy struct {
	TimeoutNs  uint64
	MaxRetries int
}

func DefaultWaitPolicy() WaitPolicy {
	return WaitPolicy{
		TimeoutNs:  1_000_000,
		MaxRetries: 5_000,
	}
}

type bufferLock struct {
	start  int
	length int
	sync   gpu.SyncHandle
}

func (l bufferLock) overlaps(start, length int) bool {
	return l.start < start+length && start < l.start+l.length
}

// FenceLockManager tracks fences guarding byte ranges of one buffer. Ranges
// are absolute offsets into the buffer, so locks in different sections never
// intersect.
type FenceLockManager struct {
	device  gpu.Device
	policy  WaitPolicy
	locks   []bufferLock
	retries uint64
}

func NewFenceLockManager(device gpu.Device, policy WaitPolicy) *FenceLockManager {
	if policy.TimeoutNs == 0 {
		policy.TimeoutNs = DefaultWaitPolicy().TimeoutNs
	}
	if policy.MaxRetries <= 0 {
		policy.MaxRetries = DefaultWaitPolicy().MaxRetries
	}
	return &FenceLockManager{
		device: device,
		policy: policy,
	}
}

// LockRange fences every command issued so far and ties the fence to
// [start, start+length). Call it after submitting the commands that read
// the range.
func (m *FenceLockManager) LockRange(start, length int) {
	if length <= 0 {
		return
	}
	m.locks = append(m.locks, bufferLock{
		start:  start,
		length: length,
		sync:   m.device.FenceSync(),
	})
}

// WaitForLockedRange blocks until every fence intersecting
// [start, start+length) has signaled and removes those fences. Locks that
// do not intersect are left untouched. After the first failed wait the
// remaining intersecting fences are deleted without waiting.
func (m *FenceLockManager) WaitForLockedRange(start, length int) error {
	if length <= 0 || len(m.locks) == 0 {
		return nil
	}
	var firstErr error
	kept := m.locks[:0]
	for _, lock := range m.locks {
		if !lock.overlaps(start, length) {
			kept = append(kept, lock)
			continue
		}
		if firstErr != nil {
			m.device.DeleteSync(lock.sync)
			continue
		}
		if err := m.Wait(lock.sync); err != nil {
			firstErr = fmt.Errorf("range [%d, %d): %w", lock.start, lock.start+lock.length, err)
		}
	}
	for i := len(kept); i < len(m.locks); i++ {
		m.locks[i] = bufferLock{}
	}
	m.locks = kept
	return firstErr
}

// Wait blocks on sync and deletes it. The first poll is non-blocking;
// subsequent polls flush and wait for the policy timeout, up to MaxRetries.
func (m *FenceLockManager) Wait(sync gpu.SyncHandle) error {
	if sync == 0 {
		return nil
	}
	defer m.device.DeleteSync(sync)

	status := m.device.ClientWaitSync(sync, false, 0)
	for attempt := 1; ; attempt++ {
		switch {
		case status.Signaled():
			return nil
		case status == gpu.WaitFailed:
			core.LogError("fence %d wait failed", sync)
			return core.ErrFenceWaitFailed
		}
		if attempt > m.policy.MaxRetries {
			core.LogError("fence %d still unsignaled after %d retries", sync, m.policy.MaxRetries)
			return core.ErrFenceTimeout
		}
		if attempt > 1 {
			core.LogDebug("fence %d not signaled, retry %d", sync, attempt)
		}
		m.retries++
		status = m.device.ClientWaitSync(sync, true, m.policy.TimeoutNs)
	}
}

// Pending is the number of fences not yet waited on.
func (m *FenceLockManager) Pending() int {
	return len(m.locks)
}

// Retries counts the blocking polls issued since creation.
func (m *FenceLockManager) Retries() uint64 {
	return m.retries
}

// Destroy deletes every outstanding fence without waiting on it.
func (m *FenceLockManager) Destroy() {
	for _, lock := range m.locks {
		m.device.DeleteSync(lock.sync)
	}
	m.locks = nil
}
