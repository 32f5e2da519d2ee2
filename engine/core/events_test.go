package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFireStopsAtHandler(t *testing.T) {
	require.True(t, EventSystemInitialize())
	defer EventSystemShutdown()

	var calls []string
	first, second := &struct{ int }{1}, &struct{ int }{2}
	require.True(t, EventRegister(EVENT_CODE_KEY_PRESSED, first, func(ctx EventContext) bool {
		calls = append(calls, "first")
		return ctx.Data.(*KeyEvent).KeyCode == KEY_ESCAPE
	}))
	require.True(t, EventRegister(EVENT_CODE_KEY_PRESSED, second, func(EventContext) bool {
		calls = append(calls, "second")
		return true
	}))
	assert.False(t, EventRegister(EVENT_CODE_KEY_PRESSED, first, func(EventContext) bool { return false }))

	assert.True(t, EventFire(EventContext{Type: EVENT_CODE_KEY_PRESSED, Data: &KeyEvent{KeyCode: KEY_A}}))
	assert.Equal(t, []string{"first", "second"}, calls)

	calls = nil
	assert.True(t, EventFire(EventContext{Type: EVENT_CODE_KEY_PRESSED, Data: &KeyEvent{KeyCode: KEY_ESCAPE}}))
	assert.Equal(t, []string{"first"}, calls)
}

func TestEventUnregister(t *testing.T) {
	require.True(t, EventSystemInitialize())
	defer EventSystemShutdown()

	listener := &struct{ int }{}
	fired := 0
	EventRegister(EVENT_CODE_RESIZED, listener, func(EventContext) bool {
		fired++
		return false
	})
	EventFire(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{WindowWidth: 1, WindowHeight: 1}})
	assert.True(t, EventUnregister(EVENT_CODE_RESIZED, listener))
	assert.False(t, EventUnregister(EVENT_CODE_RESIZED, listener))
	EventFire(EventContext{Type: EVENT_CODE_RESIZED})
	assert.Equal(t, 1, fired)
}

func TestEventPostDispatchesOnCaller(t *testing.T) {
	require.True(t, EventSystemInitialize())
	defer EventSystemShutdown()

	listener := &struct{ int }{}
	quits := 0
	require.True(t, EventRegister(EVENT_CODE_APPLICATION_QUIT, listener, func(EventContext) bool {
		quits++
		return true
	}))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			EventPost(EventContext{Type: EVENT_CODE_APPLICATION_QUIT})
		}()
	}
	wg.Wait()
	assert.Zero(t, quits, "posting never runs listeners")

	assert.Equal(t, 4, EventDispatchPosted())
	assert.Equal(t, 4, quits)
	assert.Zero(t, EventDispatchPosted())
}
