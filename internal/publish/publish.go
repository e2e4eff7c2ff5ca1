// Package publish sends decoded records to downstream consumers.
package publish

import "errors"

// Publisher delivers the latest value for a source. Implementations must be
// safe for concurrent use.
type Publisher interface {
	Publish(source string, v any) error
	Close()
}

// Nop discards everything.
type Nop struct{}

func (Nop) Publish(string, any) error { return nil }
func (Nop) Close()                    {}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(source string, v any) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(source, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() {
	for _, p := range m {
		p.Close()
	}
}
