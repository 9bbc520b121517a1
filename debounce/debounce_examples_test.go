package debounce_test

import (
	"fmt"
	"time"

	"github.com/romdo/extpack/debounce"
)

func ExampleNew() {
	// Create a new debouncer that will wait 100 milliseconds since the last
	// call before calling the callback function.
	debounced, _ := debounce.New(func(name string) {
		fmt.Printf("Hello, %s!\n", name)
	}, debounce.WithDelay(100*time.Millisecond))

	debounced("world")
	time.Sleep(75 * time.Millisecond) // +75ms = 75ms
	debounced("gopher")
	time.Sleep(75 * time.Millisecond) // +75ms = 150ms
	debounced("there")
	time.Sleep(150 * time.Millisecond) // +150ms = 300ms, trailing at 250ms

	// Output:
	// Hello, there!
}

func ExampleNew_withLeading() {
	// Create a new debouncer that will call the callback function immediately
	// on the first call, and ignore calls until 100 milliseconds have passed
	// without any.
	debounced, _ := debounce.New(
		func(n int) {
			fmt.Printf("call %d\n", n)
		},
		debounce.WithDelay(100*time.Millisecond),
		debounce.WithLeading(),
	)

	debounced(1)                      // leading trigger
	time.Sleep(50 * time.Millisecond) // +50ms = 50ms
	debounced(2)
	time.Sleep(50 * time.Millisecond) // +50ms = 100ms
	debounced(3)
	time.Sleep(200 * time.Millisecond) // +200ms = 300ms, quiet since 200ms

	debounced(4) // leading trigger
	time.Sleep(50 * time.Millisecond)

	// Output:
	// call 1
	// call 4
}

func ExampleNew_withMaxWait() {
	// Create a new debouncer that waits for 100 milliseconds of quiet, but
	// never postpones a call by more than 270 milliseconds.
	debounced, _ := debounce.New(
		func(n int) {
			fmt.Printf("saved revision %d\n", n)
		},
		debounce.WithDelay(100*time.Millisecond),
		debounce.WithMaxWait(270*time.Millisecond),
	)

	for i := 1; i <= 7; i++ {
		debounced(i)
		time.Sleep(60 * time.Millisecond)
	}
	// Calls at 0, 60, 120, 180, 240: forced at 270ms with revision 5.
	// Calls at 300, 360: trailing at 460ms with revision 7.
	time.Sleep(200 * time.Millisecond)

	// Output:
	// saved revision 5
	// saved revision 7
}

func ExampleInvoker_Flush() {
	inv := debounce.NewInvoker(func(s string) {
		fmt.Println("flushed:", s)
	}, debounce.WithDelay(time.Hour))

	inv.Trigger("draft")
	inv.Trigger("final")

	// Deliver the pending call now, then wait for it to finish.
	inv.Flush()
	inv.Wait()

	// Output:
	// flushed: final
}
