package output_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/ik5/pcmout/internal/audiotest"
	"github.com/ik5/pcmout/output"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	registry := output.NewRegistry()
	dev := audiotest.NewDevice(1)

	registry.Register("sim", dev)

	got, ok := registry.Get("sim")
	if !ok {
		t.Fatal("Registry.Get() failed to retrieve registered backend")
	}

	if got != dev {
		t.Error("Registry.Get() returned different backend instance")
	}
}

func TestRegistry_Lookup(t *testing.T) {
	t.Parallel()

	registry := output.NewRegistry()
	registry.Register("oto", audiotest.NewDevice(1))
	registry.Register("alsa", audiotest.NewDevice(1))

	_, err := registry.Lookup("jack")
	if !errors.Is(err, output.ErrUnknownBackend) {
		t.Errorf("Lookup() error = %v, want ErrUnknownBackend", err)
	}

	if err.Error() != `output: unknown backend: "jack" (have [alsa oto])` {
		t.Errorf("Lookup() error = %q", err.Error())
	}
}

func TestRegistry_Overwrite(t *testing.T) {
	t.Parallel()

	registry := output.NewRegistry()
	first := audiotest.NewDevice(1)
	second := audiotest.NewDevice(2)

	registry.Register("sim", first)
	registry.Register("sim", second)

	got, _ := registry.Get("sim")
	if got != second {
		t.Error("Registry.Register() did not overwrite existing backend")
	}
	if len(registry.Names()) != 1 {
		t.Errorf("Names() = %v, want one entry", registry.Names())
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	t.Parallel()

	registry := output.NewRegistry()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			registry.Register(string(rune('a' + i)), audiotest.NewDevice(1))
		}()
		go func() {
			defer wg.Done()
			registry.Get(string(rune('a' + i)))
		}()
	}
	wg.Wait()

	if len(registry.Names()) != 10 {
		t.Errorf("Names() = %v, want 10 entries", registry.Names())
	}
}
