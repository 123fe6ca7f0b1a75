package binsearch

import (
	"bufio"
	"container/heap"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// DefaultSortMemoryBudget bounds the in-memory chunk size used by the
// external merge sort, replacing the original implementation's shell-out
// to the system `sort` utility (spec §9 design notes: "rather than
// shelling out, ... an in-process external-merge-sort over chunked
// temporary files, bounded by a configurable memory budget").
const DefaultSortMemoryBudget = 64 * 1024 * 1024

const maxSortLineLen = 4096

// externalSortLines sorts the newline-terminated lines of srcPath
// lexicographically by byte value (matching POSIX `sort`'s default C
// locale collation, which is what produces the on-disk ordering the
// original index format relies on) and writes the result to dstPath.
// Input is read in memBudget-sized chunks, each sorted in memory and
// spilled to a run file; runs are then merged with a k-way heap merge so
// peak memory stays bounded regardless of source file size.
func externalSortLines(srcPath, dstPath string, memBudget int64) error {
	if memBudget <= 0 {
		memBudget = DefaultSortMemoryBudget
	}
	runDir := filepath.Dir(dstPath)
	runPaths, err := splitSortedRuns(srcPath, runDir, memBudget)
	if err != nil {
		return err
	}
	defer func() {
		for _, p := range runPaths {
			os.Remove(p)
		}
	}()
	return mergeRuns(runPaths, dstPath)
}

func splitSortedRuns(srcPath, runDir string, memBudget int64) ([]string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, maxSortLineLen), maxSortLineLen)

	var runPaths []string
	var chunk []string
	var chunkBytes int64

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		sort.Strings(chunk)
		run, err := os.CreateTemp(runDir, "hashdb-sort-run-*.tmp")
		if err != nil {
			return err
		}
		w := bufio.NewWriter(run)
		for _, line := range chunk {
			if _, err := w.WriteString(line); err != nil {
				run.Close()
				return err
			}
			if err := w.WriteByte('\n'); err != nil {
				run.Close()
				return err
			}
		}
		if err := w.Flush(); err != nil {
			run.Close()
			return err
		}
		if err := run.Close(); err != nil {
			return err
		}
		runPaths = append(runPaths, run.Name())
		chunk = nil
		chunkBytes = 0
		return nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		chunk = append(chunk, line)
		chunkBytes += int64(len(line)) + 1
		if chunkBytes >= memBudget {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("binsearch: reading %s: %w", srcPath, err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return runPaths, nil
}

// runHeapItem is one candidate line in the k-way merge, tagged with which
// run it came from so the merge can pull the next line from that run.
type runHeapItem struct {
	line string
	run  int
}

type runHeap []runHeapItem

func (h runHeap) Len() int            { return len(h) }
func (h runHeap) Less(i, j int) bool  { return h[i].line < h[j].line }
func (h runHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *runHeap) Push(x interface{}) { *h = append(*h, x.(runHeapItem)) }
func (h *runHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func mergeRuns(runPaths []string, dstPath string) error {
	if len(runPaths) == 0 {
		return os.WriteFile(dstPath, nil, 0o644)
	}

	readers := make([]*bufio.Scanner, len(runPaths))
	files := make([]*os.File, len(runPaths))
	for i, p := range runPaths {
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		files[i] = f
		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, maxSortLineLen), maxSortLineLen)
		readers[i] = sc
	}
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	defer dst.Close()
	w := bufio.NewWriter(dst)

	h := &runHeap{}
	heap.Init(h)
	for i, sc := range readers {
		if sc.Scan() {
			heap.Push(h, runHeapItem{line: sc.Text(), run: i})
		}
	}

	for h.Len() > 0 {
		item := heap.Pop(h).(runHeapItem)
		if _, err := w.WriteString(item.line); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
		if readers[item.run].Scan() {
			heap.Push(h, runHeapItem{line: readers[item.run].Text(), run: item.run})
		} else if err := readers[item.run].Err(); err != nil {
			return err
		}
	}
	return w.Flush()
}
