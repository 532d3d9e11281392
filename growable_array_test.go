// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package containers_test

import (
	"sync"
	"testing"

	"code.hybscloud.com/containers"
)

// =============================================================================
// GrowableArray - Basic Append and Read
// =============================================================================

func TestGrowableArrayBasic(t *testing.T) {
	a := containers.NewGrowableArray[int](4)

	for i := range 10 {
		if idx := a.PushBack(i * 10); idx != i {
			t.Fatalf("PushBack(%d): got index %d, want %d", i, idx, i)
		}
	}
	if a.Len() != 10 {
		t.Fatalf("Len: got %d, want 10", a.Len())
	}

	for i := range 10 {
		v, ok := a.At(i)
		if !ok {
			t.Fatalf("At(%d): want ok", i)
		}
		if v != i*10 {
			t.Fatalf("At(%d): got %d, want %d", i, v, i*10)
		}
	}

	if _, ok := a.At(10); ok {
		t.Fatalf("At(10) on a 10-element array: want !ok")
	}
	if _, ok := a.At(-1); ok {
		t.Fatalf("At(-1): want !ok")
	}
}

func TestGrowableArrayRejectsNonPowerOfTwoBlockSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("NewGrowableArray(3): want panic")
		}
	}()
	containers.NewGrowableArray[int](3)
}

// =============================================================================
// GrowableArray - Single Writer, Multiple Readers, Spanning Map Growth
// =============================================================================

func TestGrowableArraySingleWriterManyReaders(t *testing.T) {
	a := containers.NewGrowableArray[int](4)

	const total = 500 // forces several block-map doublings at blockSize=4
	const readers = 8

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan string, readers)

	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reader := a.NewReader()
			last := 0
			for {
				select {
				case <-stop:
					return
				default:
				}
				for last < total {
					v, ok := reader.At(last)
					if !ok {
						break
					}
					if v != last*2 {
						errs <- "value mismatch at index"
						return
					}
					last++
				}
			}
		}()
	}

	for i := 0; i < total; i++ {
		a.PushBack(i * 2)
	}
	close(stop)
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Fatalf("reader error: %s", msg)
	}

	for i := 0; i < total; i++ {
		v, ok := a.At(i)
		if !ok || v != i*2 {
			t.Fatalf("At(%d): got (%d, %v), want (%d, true)", i, v, ok, i*2)
		}
	}
}
