package kernel_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nogokama/dslab/kernel"
)

type ping struct{ N int }
type pong struct{ N int }

func TestStepTieBreakReadyTaskBeforeEvent(t *testing.T) {
	k := kernel.New(1, nil)
	a := k.Context("a")
	b := k.Context("b")

	var order []string
	k.AddHandler(b.ID(), func(ctx *kernel.Context, e kernel.Event) {
		order = append(order, "event")
	})

	a.Spawn(func(co *kernel.Coroutine) {
		order = append(order, "task")
	})
	a.Emit(ping{}, b.ID(), 0)

	// A ready task exists before any Step; it must run first even though
	// an event is already pending at the same virtual time.
	require.True(t, k.Step())
	require.Equal(t, []string{"task"}, order)

	require.True(t, k.Step())
	require.Equal(t, []string{"task", "event"}, order)

	require.False(t, k.Step())
}

func TestEmitAndHandlerDispatch(t *testing.T) {
	k := kernel.New(1, nil)
	a := k.Context("a")
	b := k.Context("b")

	var gotTime float64
	var gotPayload ping
	k.AddHandler(b.ID(), func(ctx *kernel.Context, e kernel.Event) {
		gotTime = ctx.Time()
		gotPayload, _ = e.Payload.(ping)
	})

	a.Emit(ping{N: 42}, b.ID(), 2.5)
	k.StepUntilNoEvents()

	require.Equal(t, 2.5, gotTime)
	require.Equal(t, 42, gotPayload.N)
}

func TestSleepSuspendsForExactDuration(t *testing.T) {
	k := kernel.New(1, nil)
	a := k.Context("a")

	var wokeAt float64
	a.Spawn(func(co *kernel.Coroutine) {
		kernel.Sleep(co, 3)
		wokeAt = co.Time()
	})
	k.StepUntilNoEvents()

	require.Equal(t, 3.0, wokeAt)
}

func TestWaitForEventDeliversMatchingPayload(t *testing.T) {
	k := kernel.New(1, nil)
	client := k.Context("client")
	server := k.Context("server")

	k.AddHandler(server.ID(), func(ctx *kernel.Context, e kernel.Event) {
		req, _ := e.Payload.(ping)
		ctx.Emit(pong{N: req.N * 2}, e.Src, 1)
	})

	var got pong
	client.Spawn(func(co *kernel.Coroutine) {
		co.EmitNow(ping{N: 21}, server.ID())
		_, got = kernel.WaitForEvent[pong](co, server.ID())
	})
	k.StepUntilNoEvents()

	require.Equal(t, 42, got.N)
}

func TestWaitForEventForTimesOutWhenNoReply(t *testing.T) {
	k := kernel.New(1, nil)
	client := k.Context("client")
	server := k.Context("server")

	var result kernel.AwaitResultT[pong]
	client.Spawn(func(co *kernel.Coroutine) {
		result = kernel.WaitForEventFor[pong](co, server.ID(), 5)
	})
	k.StepUntilNoEvents()

	require.Equal(t, kernel.AwaitTimeout, result.Kind)
	require.Equal(t, 5.0, k.Time())
}

func TestWaitForEventForResolvesBeforeTimeout(t *testing.T) {
	k := kernel.New(1, nil)
	client := k.Context("client")
	server := k.Context("server")

	var result kernel.AwaitResultT[pong]
	client.Spawn(func(co *kernel.Coroutine) {
		result = kernel.WaitForEventFor[pong](co, server.ID(), 5)
	})
	server.Emit(pong{N: 7}, client.ID(), 1)
	k.StepUntilNoEvents()

	require.Equal(t, kernel.AwaitOK, result.Kind)
	require.Equal(t, 7, result.Value.N)
	require.Equal(t, 1.0, k.Time())
}

func TestRemoveHandlerCancelsPendingEvents(t *testing.T) {
	k := kernel.New(1, nil)
	a := k.Context("a")
	b := k.Context("b")

	delivered := false
	k.AddHandler(b.ID(), func(ctx *kernel.Context, e kernel.Event) { delivered = true })

	a.Emit(ping{}, b.ID(), 1)
	k.RemoveHandler(b.ID())
	k.StepUntilNoEvents()

	require.False(t, delivered)
}

func TestNegativeDelayIsFatal(t *testing.T) {
	k := kernel.New(1, nil)
	a := k.Context("a")

	require.Panics(t, func() {
		a.Emit(ping{}, a.ID(), -1)
	})
}

func TestDuplicateAwaitIsFatal(t *testing.T) {
	k := kernel.New(1, nil)
	a := k.Context("a")
	b := k.Context("b")

	require.Panics(t, func() {
		a.Spawn(func(co *kernel.Coroutine) {
			kernel.WaitForEvent[pong](co, b.ID())
		})
		a.Spawn(func(co *kernel.Coroutine) {
			kernel.WaitForEvent[pong](co, b.ID())
		})
		k.StepUntilNoEvents()
	})
}

func TestEventCountMonotonicallyIncreases(t *testing.T) {
	k := kernel.New(1, nil)
	a := k.Context("a")
	b := k.Context("b")

	require.Equal(t, uint64(0), k.EventCount())
	a.Emit(ping{}, b.ID(), 1)
	require.Equal(t, uint64(1), k.EventCount())
	a.Emit(ping{}, b.ID(), 2)
	require.Equal(t, uint64(2), k.EventCount())
}

func TestDeterministicReplayWithSameSeed(t *testing.T) {
	run := func() []float64 {
		k := kernel.New(7, nil)
		a := k.Context("a")
		var draws []float64
		a.Spawn(func(co *kernel.Coroutine) {
			for i := 0; i < 5; i++ {
				draws = append(draws, co.Rand())
			}
		})
		k.StepUntilNoEvents()
		return draws
	}

	require.Equal(t, run(), run())
}
