// Package bench runs tasks concurrently and collects latency statistics measured
// with a calibrated cycle counter.
package bench

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/aknopov/rdclock/tickcount"
	"github.com/ericlagergren/decimal"
)

// Tick source with conversion to microseconds, e.g. *rdclock.Facility
type Stopwatch interface {
	Ticks() uint64
	TicksToMicroseconds(ticks uint64) (float64, error)
}

// Statistics for running one task, times in microseconds
type RunStats struct {
	Count  int       `json:"count" yaml:"count"`
	Total  float64   `json:"sum_time" yaml:"sum_time"`
	Avg    float64   `json:"avg_time" yaml:"avg_time"`
	Min    float64   `json:"min_time" yaml:"min_time"`
	Max    float64   `json:"max_time" yaml:"max_time"`
	Med    float64   `json:"med_time" yaml:"med_time"`
	StdDev float64   `json:"stdev_time" yaml:"stdev_time"`
	Fails  int       `json:"fails" yaml:"fails"`
	Values []float64 `json:"times" yaml:"times"`
}

// Generic test task
type TestTask func() error

var (
	ErrNoTasks = errors.New("nothing to run")
)

type taskFixture struct {
	sema      *chan struct{}  // threads number throttle - shared
	waitGroup *sync.WaitGroup // completion flag - shared
	sw        Stopwatch
	lock      sync.Mutex // `runtimes` guard
	task      TestTask
	runtimes  []uint64 // ticks
	fails     int
}

// No data struct
var ND = struct{}{}

// Runs concurrently several tasks
//
//   - sw - calibrated tick source
//
//   - tasks - tasks to run
//
//   - totalRuns - total number of tasks to run (> len(tasks))
//
//   - concurrent - number of concurrent tasks (< totalRuns)
//
//     return time statistics for each task
func RunTest(sw Stopwatch, tasks []TestTask, totalRuns int, concurrent int) ([]RunStats, error) {
	if len(tasks) == 0 || totalRuns < 1 {
		return nil, ErrNoTasks
	}
	if _, err := sw.TicksToMicroseconds(0); err != nil {
		return nil, fmt.Errorf("can't time tasks: %w", err)
	}
	concurrent = max(concurrent, 1)

	waitGroup := new(sync.WaitGroup)
	sema := make(chan struct{}, concurrent)
	fixtures := make([]*taskFixture, len(tasks))
	for i, task := range tasks {
		fixtures[i] = createFixture(sw, task, &sema, waitGroup)
	}

	for i := 0; i < totalRuns; i++ {
		idx := i % len(tasks)
		waitGroup.Add(1)
		go runOneTask(fixtures[idx])
	}

	waitGroup.Wait()

	return calcStats(fixtures), nil
}

// Compares two series of tests and calculates probabilities that latencies in the second series
// are smaller using Welch's t-test.
//
// Statistics "stats1" and "stats2" should have same number of tests; run counts in test pairs are not required to be equal,
// but they should be larger than 1.
func CalcPvals(stats1, stats2 []RunStats) ([]float64, error) {
	if len(stats1) != len(stats2) {
		return nil, errors.New("different size of tasks")
	}

	pVals := make([]float64, 0, len(stats1))
	for i := range stats1 {
		tRes, err := WelchTTest(runStats2Sample(stats1[i]), runStats2Sample(stats2[i]), LocationGreater)
		if err != nil {
			return nil, fmt.Errorf("invalid statistics data in sample %d: %w", i, err)
		}

		pVals = append(pVals, tRes.P)
	}

	return pVals, nil
}

// Measures cost of reading each counter: every task reads its counter "reads" times.
// Returned statistics are in microseconds per task run.
func CounterCost(sw Stopwatch, counters []tickcount.Counter, reads, runs, concurrent int) ([]RunStats, error) {
	tasks := make([]TestTask, len(counters))
	for i, c := range counters {
		tasks[i] = func() error {
			for range reads {
				c.Ticks()
			}
			return nil
		}
	}
	return RunTest(sw, tasks, runs*len(counters), concurrent)
}

func createFixture(sw Stopwatch, task TestTask, sema *chan struct{}, waitGroup *sync.WaitGroup) *taskFixture {
	var fixture taskFixture
	fixture.sema = sema
	fixture.waitGroup = waitGroup
	fixture.sw = sw
	fixture.task = task
	fixture.runtimes = make([]uint64, 0)
	return &fixture
}

func runOneTask(fixture *taskFixture) {
	*fixture.sema <- ND
	defer func() { <-*fixture.sema }()
	defer fixture.waitGroup.Done()

	start := fixture.sw.Ticks()
	err := fixture.task()
	end := fixture.sw.Ticks()

	fixture.lock.Lock()
	fixture.runtimes = append(fixture.runtimes, end-min(start, end))
	if err != nil {
		fixture.fails++
	}
	fixture.lock.Unlock()
}

func calcStats(fixtures []*taskFixture) []RunStats {
	ret := make([]RunStats, 0)

	precCtx := decimal.Context128
	for _, fixture := range fixtures {
		values := make([]float64, len(fixture.runtimes))
		for i, ticks := range fixture.runtimes {
			values[i], _ = fixture.sw.TicksToMicroseconds(ticks)
		}

		var testStats RunStats
		testStats.Fails = fixture.fails
		testStats.Values = values
		testCount := len(values)
		if testCount == 0 {
			ret = append(ret, testStats)
			continue
		}

		sorted := make([]float64, testCount)
		copy(sorted, values)
		sort.Float64s(sorted)

		sum := new(decimal.Big)
		sum2 := new(decimal.Big)
		bigT := new(decimal.Big)
		for _, t := range sorted {
			bigT.SetFloat64(t)
			precCtx.Add(sum, sum, bigT)
			precCtx.Add(sum2, sum2, precCtx.Mul(bigT, bigT, bigT))
		}

		fCount := float64(testCount)
		testStats.Count = testCount
		testStats.Total = big2float(sum)
		testStats.Avg = big2float(sum) / fCount
		testStats.Min = sorted[0]
		testStats.Med = sorted[testCount/2]
		testStats.Max = sorted[testCount-1]
		if testCount > 1 {
			sq := new(decimal.Big)
			precCtx.Mul(sq, sum, sum)
			precCtx.Quo(sq, sq, decimal.New(int64(testCount), 0))
			precCtx.Sub(sq, sum2, sq)
			testStats.StdDev = math.Sqrt(math.Max(big2float(sq)/(fCount-1), 0))
		}

		ret = append(ret, testStats)
	}
	return ret
}

func big2float(val *decimal.Big) float64 {
	conv, _ := val.Float64()
	return conv
}
