// Package gpio turns PIR sensor lines into motion events.
// The real reader uses the Linux GPIO character device; tests use FakeReader.
package gpio

// Reader reads logical line levels. Active-low inversion happens in the reader.
type Reader interface {
	// Read returns the level of every requested offset.
	Read() (map[int]bool, error)

	// Close releases GPIO resources.
	Close() error
}
