package flowid

import (
	"io"
	"math/rand"
	"regexp"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

// Crockford base32, with the first character limited by the 48 bit time
// component.
var ulidFlowIDRegex = regexp.MustCompile(`^[0-7][0-9A-HJKMNP-TV-Z]{25}$`)

type ulidGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewULIDGenerator returns a generator of ULID flow ids. The flow ids of
// the same millisecond are monotonic, so the access log entries sort in
// the order of their arrival. It is safe for concurrent use.
func NewULIDGenerator() Generator {
	r := rand.New(rand.NewSource(time.Now().UTC().UnixNano())) // #nosec
	return NewULIDGeneratorWithEntropyProvider(ulid.Monotonic(r, 0))
}

// NewULIDGeneratorWithEntropyProvider is like NewULIDGenerator, with a
// custom source of entropy.
func NewULIDGeneratorWithEntropyProvider(r io.Reader) Generator {
	return &ulidGenerator{entropy: r}
}

func (g *ulidGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Now(), g.entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (g *ulidGenerator) MustGenerate() string {
	id, err := g.Generate()
	if err != nil {
		panic(err)
	}

	return id
}

func (g *ulidGenerator) IsValid(flowId string) bool {
	return ulidFlowIDRegex.MatchString(flowId)
}
