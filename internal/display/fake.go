package display

// FakeSink records shown values for test assertions.
type FakeSink struct {
	// Values contains every value passed to Show, in order.
	Values []uint32

	// ShowError, if set, will be returned by Show.
	ShowError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSink creates a FakeSink for testing.
func NewFakeSink() *FakeSink {
	return &FakeSink{}
}

// Show records value.
func (f *FakeSink) Show(value uint32) error {
	if f.ShowError != nil {
		return f.ShowError
	}
	f.Values = append(f.Values, value)
	return nil
}

// Last returns the most recently shown value, or 0 if none.
func (f *FakeSink) Last() uint32 {
	if len(f.Values) == 0 {
		return 0
	}
	return f.Values[len(f.Values)-1]
}

// Close marks the sink as closed.
func (f *FakeSink) Close() error {
	f.Closed = true
	return nil
}
