// Package mocker swaps package-level functions and variables for the duration of a test.
package mocker

// Anything that runs functions at the end of a test, e.g. *testing.T
type Cleaner interface {
	Cleanup(func())
}

// Sets the item (function or variable) and returns the restoring function:
//
//	defer mocker.ReplaceItem(&probeF, fakeProbe)()
//
// - note extra brackets.
func ReplaceItem[T any](item *T, val T) func() {
	saved := *item
	*item = val
	return func() { *item = saved }
}

// Sets the item until the test completes; later swaps of the same item are restored first.
func Swap[T any](c Cleaner, item *T, val T) {
	c.Cleanup(ReplaceItem(item, val))
}
