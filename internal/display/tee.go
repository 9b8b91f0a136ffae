package display

import "errors"

type tee []Sink

// Tee returns a Sink that shows every value on all of sinks.
// Every sink is called even if an earlier one fails.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

func (t tee) Show(value uint32) error {
	var errs []error
	for _, s := range t {
		if err := s.Show(value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t tee) Close() error {
	var errs []error
	for _, s := range t {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
