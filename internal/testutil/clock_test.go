package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/typekit/internal/engine"
)

func TestDeterministicClock_NextIncrementsMonotonically(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())

	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(2), clock.Next())
	assert.Equal(t, int64(2), clock.Current())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock()
	clock.Next()
	clock.Next()

	clock.Reset()
	assert.Equal(t, int64(0), clock.Current())
	assert.Equal(t, int64(1), clock.Next())

	clock.ResetTo(40)
	assert.Equal(t, int64(41), clock.Next())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	clock := NewDeterministicClock()
	const goroutines = 50
	const calls = 40

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range calls {
				clock.Next()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(goroutines*calls), clock.Current())
}

// The same scenario against a rewound clock stamps identical seqs.
func TestDeterministicClock_DrivesRegistry(t *testing.T) {
	clock := NewDeterministicClock()

	run := func() []engine.HookRun {
		clock.Reset()
		reg := engine.NewRegistry(engine.WithClock(clock), engine.WithIDGenerator(NewSequentialIDGenerator("")))
		typ := reg.Root().Extend(engine.Descriptor{Members: engine.Members{"noop": engine.Builtins()["noop"]}})
		typ.AddInitHook(engine.MethodName("noop"))
		inst, err := typ.New()
		require.NoError(t, err)
		assert.Equal(t, int64(1), inst.Seq())
		return inst.HookRuns()
	}

	assert.Equal(t, run(), run())
}
