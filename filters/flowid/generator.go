package flowid

// Generator interface should be implemented by types that can generate request tracing Flow IDs.
type Generator interface {
	// Generate returns a new Flow ID using the implementation specific format or an error in case of failure.
	Generate() (string, error)
	// MustGenerate behaves like Generate but panics on failure instead of returning an error.
	MustGenerate() string
	// IsValid asserts if a given flow ID follows an implementation specific format
	IsValid(string) bool
}

// NewGenerator returns the generator selected by name: "ulid" for ULID
// flow ids, "standard", or the empty string, for the built-in alphabet
// generator with the default length.
func NewGenerator(name string) (Generator, error) {
	switch name {
	case "", "standard", "builtin":
		return NewStandardGenerator(defaultLen)
	case "ulid":
		return NewULIDGenerator(), nil
	default:
		return nil, ErrUnknownGenerator
	}
}
