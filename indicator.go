package pixeld

// StatusIndicator is a liveness output, such as an on-board LED. It is
// toggled once per frame.
type StatusIndicator interface {
	// Toggle flips the indicator.
	Toggle() error
}

// StatusIndicatorFunc is a function that implements StatusIndicator.
type StatusIndicatorFunc func() error

// Toggle implements StatusIndicator.
func (f StatusIndicatorFunc) Toggle() error { return f() }
