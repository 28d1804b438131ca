package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufoflow/ufoflow/buffer"
	"github.com/ufoflow/ufoflow/graph"
	"github.com/ufoflow/ufoflow/relation"
	"github.com/ufoflow/ufoflow/resource"
)

type noopProps struct{}

func (noopProps) SetJSONObjectProperty(string, map[string]any) error { return nil }

// fakeSource yields a fixed sequence of scalar values then stops.
type fakeSource struct {
	noopProps
	values []float64
	i      int
}

func (s *fakeSource) Initialize() ([][]int, error) { return [][]int{{1}}, nil }

func (s *fakeSource) Generate(outputs []*buffer.Buffer, _ resource.CommandQueue) (bool, error) {
	if s.i >= len(s.values) {
		return false, nil
	}
	outputs[0].Set(0, s.values[s.i])
	s.i++
	return true, nil
}

// fakeMultiplier multiplies its single input by a constant factor.
type fakeMultiplier struct {
	noopProps
	factor float64
}

func (m *fakeMultiplier) Initialize([]*buffer.Buffer) ([][]int, error) { return [][]int{{1}}, nil }

func (m *fakeMultiplier) ProcessCPU(work, result []*buffer.Buffer, _ resource.CommandQueue) error {
	result[0].Set(0, work[0].Get(0)*m.factor)
	return nil
}

// fakeSink records every value it consumes, across N input ports.
type fakeSink struct {
	noopProps
	mu       sync.Mutex
	consumed [][]float64
}

func (s *fakeSink) Initialize([]*buffer.Buffer) error { return nil }

func (s *fakeSink) Consume(work []*buffer.Buffer, _ resource.CommandQueue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := make([]float64, len(work))
	for i, b := range work {
		row[i] = b.Get(0)
	}
	s.consumed = append(s.consumed, row)
	return nil
}

func (s *fakeSink) snapshot() [][]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]float64, len(s.consumed))
	copy(out, s.consumed)
	return out
}

func TestWorker_LinearPipeline(t *testing.T) {
	mgr := resource.NewHostManager(1)
	queue := mgr.CommandQueues()[0]

	srcTask := graph.NewTask("src", "a", graph.ModeSource)
	srcTask.Outputs = []graph.OutputPort{{NDims: 1, PoolSize: 2}}
	srcTask.Impl = &fakeSource{values: []float64{1, 2, 3}}

	procTask := graph.NewTask("mul10", "p", graph.ModeProcessor)
	procTask.Inputs = []graph.InputPort{{NExpectedItems: graph.Infinite}}
	procTask.Outputs = []graph.OutputPort{{NDims: 1, PoolSize: 2}}
	procTask.Impl = &fakeMultiplier{factor: 10}

	sinkTask := graph.NewTask("snk", "s", graph.ModeSink)
	sinkTask.Inputs = []graph.InputPort{{NExpectedItems: graph.Infinite}}
	sink := &fakeSink{}
	sinkTask.Impl = sink

	relA := relation.New("a", 0, 2)
	laneP := relA.AddConsumer("p", 0)
	relP := relation.New("p", 0, 2)
	laneS := relP.AddConsumer("s", 0)

	wSrc := &Worker{Task: srcTask, Outputs: []Output{{Rel: relA}}, Queue: queue, Resources: mgr}
	wProc := &Worker{
		Task:      procTask,
		Inputs:    []Input{{Rel: relA, Lane: laneP, Expected: graph.Infinite}},
		Outputs:   []Output{{Rel: relP}},
		Queue:     queue,
		Resources: mgr,
	}
	wSnk := &Worker{
		Task:      sinkTask,
		Inputs:    []Input{{Rel: relP, Lane: laneS, Expected: graph.Infinite}},
		Queue:     queue,
		Resources: mgr,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	results := make([]Result, 3)
	for i, w := range []*Worker{wSrc, wProc, wSnk} {
		wg.Add(1)
		go func(i int, w *Worker) {
			defer wg.Done()
			results[i] = w.Run(ctx)
		}(i, w)
	}
	wg.Wait()

	for _, r := range results {
		require.NoError(t, r.Err)
	}

	got := sink.snapshot()
	require.Len(t, got, 3)
	assert.Equal(t, []float64{10}, got[0])
	assert.Equal(t, []float64{20}, got[1])
	assert.Equal(t, []float64{30}, got[2])
}

func TestWorker_PoisonPillDiamond(t *testing.T) {
	// A -> B, A -> C, B -> D(input 0), C -> D(input 1).
	mgr := resource.NewHostManager(1)
	queue := mgr.CommandQueues()[0]

	srcTask := graph.NewTask("src", "a", graph.ModeSource)
	srcTask.Outputs = []graph.OutputPort{{NDims: 1, PoolSize: 2}}
	srcTask.Impl = &fakeSource{values: nil} // stops immediately

	bTask := graph.NewTask("id", "b", graph.ModeProcessor)
	bTask.Inputs = []graph.InputPort{{NExpectedItems: graph.Infinite}}
	bTask.Outputs = []graph.OutputPort{{NDims: 1, PoolSize: 2}}
	bTask.Impl = &fakeMultiplier{factor: 1}

	cTask := graph.NewTask("id", "c", graph.ModeProcessor)
	cTask.Inputs = []graph.InputPort{{NExpectedItems: graph.Infinite}}
	cTask.Outputs = []graph.OutputPort{{NDims: 1, PoolSize: 2}}
	cTask.Impl = &fakeMultiplier{factor: 1}

	dTask := graph.NewTask("snk", "d", graph.ModeSink)
	dTask.Inputs = []graph.InputPort{{NExpectedItems: graph.Infinite}, {NExpectedItems: graph.Infinite}}
	sink := &fakeSink{}
	dTask.Impl = sink

	relA := relation.New("a", 0, 2)
	laneB := relA.AddConsumer("b", 0)
	laneC := relA.AddConsumer("c", 0)

	relB := relation.New("b", 0, 2)
	laneDFromB := relB.AddConsumer("d", 0)

	relC := relation.New("c", 0, 2)
	laneDFromC := relC.AddConsumer("d", 1)

	wA := &Worker{Task: srcTask, Outputs: []Output{{Rel: relA}}, Queue: queue, Resources: mgr}
	wB := &Worker{
		Task:      bTask,
		Inputs:    []Input{{Rel: relA, Lane: laneB, Expected: graph.Infinite}},
		Outputs:   []Output{{Rel: relB}},
		Queue:     queue,
		Resources: mgr,
	}
	wC := &Worker{
		Task:      cTask,
		Inputs:    []Input{{Rel: relA, Lane: laneC, Expected: graph.Infinite}},
		Outputs:   []Output{{Rel: relC}},
		Queue:     queue,
		Resources: mgr,
	}
	wD := &Worker{
		Task: dTask,
		Inputs: []Input{
			{Rel: relB, Lane: laneDFromB, Expected: graph.Infinite},
			{Rel: relC, Lane: laneDFromC, Expected: graph.Infinite},
		},
		Queue:     queue,
		Resources: mgr,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	results := make([]Result, 4)
	for i, w := range []*Worker{wA, wB, wC, wD} {
		wg.Add(1)
		go func(i int, w *Worker) {
			defer wg.Done()
			results[i] = w.Run(ctx)
		}(i, w)
	}
	wg.Wait()

	for _, r := range results {
		require.NoError(t, r.Err)
	}
	// D only exits once it has observed a pill on both of its input
	// ports; Run returning at all (rather than hanging until the test's
	// context timeout) is the assertion that matters here.
	assert.Empty(t, sink.snapshot())
}
