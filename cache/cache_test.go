package cache

import (
	"errors"
	"sync"
	"testing"

	"github.com/matryer/is"
)

func TestLoadOnce(t *testing.T) {
	is := is.New(t)
	calls := 0
	loader := func(key string) (interface{}, error) {
		calls++
		return len(key), nil
	}
	for i := 0; i < 3; i++ {
		obj, err := Load("load-once-key", loader)
		is.NoErr(err)
		is.Equal(obj.(int), len("load-once-key"))
	}
	is.Equal(calls, 1)
}

func TestLoadErrorNotCached(t *testing.T) {
	is := is.New(t)
	errBoom := errors.New("boom")
	_, err := Load("failing-key", func(string) (interface{}, error) {
		return nil, errBoom
	})
	is.True(errors.Is(err, errBoom))

	obj, err := Load("failing-key", func(string) (interface{}, error) {
		return "ok", nil
	})
	is.NoErr(err)
	is.Equal(obj.(string), "ok")
}

func TestLoadConcurrent(t *testing.T) {
	is := is.New(t)
	var mu sync.Mutex
	calls := 0
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Load("concurrent-key", func(string) (interface{}, error) {
				mu.Lock()
				calls++
				mu.Unlock()
				return struct{}{}, nil
			})
			is.NoErr(err)
		}()
	}
	wg.Wait()
	is.Equal(calls, 1)
	is.True(Size() >= 1)
}
