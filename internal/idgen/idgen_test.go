package idgen

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestV4Generator(t *testing.T) {
	gen := NewV4()

	id, err := gen.Generate()
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if id == uuid.Nil {
		t.Error("Generate() returned nil UUID")
	}
	if id.Version() != 4 {
		t.Errorf("Generate() version = %d, want 4", id.Version())
	}
}

func TestV7Generator(t *testing.T) {
	t.Run("generates v7 ids", func(t *testing.T) {
		gen := NewV7()

		id, err := gen.Generate()
		if err != nil {
			t.Fatalf("Generate() unexpected error: %v", err)
		}
		if id == uuid.Nil {
			t.Error("Generate() returned nil UUID")
		}
		if id.Version() != 7 {
			t.Errorf("Generate() version = %d, want 7", id.Version())
		}
	})

	t.Run("ids are unique", func(t *testing.T) {
		gen := NewV7()
		seen := make(map[uuid.UUID]bool)

		for i := 0; i < 1000; i++ {
			id, err := gen.Generate()
			if err != nil {
				t.Fatalf("Generate() unexpected error: %v", err)
			}
			if seen[id] {
				t.Errorf("Generate() produced duplicate id: %s", id)
			}
			seen[id] = true
		}
	})

	t.Run("with retries option", func(t *testing.T) {
		gen := NewV7(WithRetries(3))
		if _, err := gen.Generate(); err != nil {
			t.Fatalf("Generate() unexpected error: %v", err)
		}
	})

	t.Run("concurrent generation is safe", func(t *testing.T) {
		gen := NewV7()
		const goroutines = 20

		var wg sync.WaitGroup
		errChan := make(chan error, goroutines)

		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					if _, err := gen.Generate(); err != nil {
						errChan <- err
						return
					}
				}
			}()
		}

		wg.Wait()
		close(errChan)

		for err := range errChan {
			t.Errorf("concurrent Generate() error: %v", err)
		}
	})
}
