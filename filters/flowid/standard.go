package flowid

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

const (
	flowIdAlphabet  = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ-+"
	alphabetBitMask = 63
	alphabetBits    = 6
	MaxLength       = 64
	MinLength       = 8
	defaultLen      = 16
)

var (
	ErrInvalidLen       = fmt.Errorf("invalid length, must be between %d and %d", MinLength, MaxLength)
	ErrUnknownGenerator = errors.New("unknown flow id generator")
)

type standardGenerator struct {
	length int
}

// NewStandardGenerator creates a generator of flow ids with length l,
// made of the 64 characters of the alphanumeric alphabet extended with
// '-' and '+'. It is safe for concurrent use.
func NewStandardGenerator(l int) (Generator, error) {
	if l < MinLength || l > MaxLength {
		return nil, ErrInvalidLen
	}

	return &standardGenerator{length: l}, nil
}

// Generate takes 6 bits of randomness per character, drawing a new 64 bit
// value when the current one is used up.
func (g *standardGenerator) Generate() (string, error) {
	id := make([]byte, g.length)

	var bits uint64
	var left int
	for i := range id {
		if left < alphabetBits {
			bits = rand.Uint64() // #nosec
			left = 64
		}

		id[i] = flowIdAlphabet[bits&alphabetBitMask]
		bits >>= alphabetBits
		left -= alphabetBits
	}

	return string(id), nil
}

func (g *standardGenerator) MustGenerate() string {
	id, err := g.Generate()
	if err != nil {
		panic(err)
	}

	return id
}

// IsValid accepts any flow id of the valid lengths made of the alphabet
// characters, so ids generated with a different length are reused, too.
func (g *standardGenerator) IsValid(flowId string) bool {
	if len(flowId) < MinLength || len(flowId) > MaxLength {
		return false
	}

	for i := 0; i < len(flowId); i++ {
		if strings.IndexByte(flowIdAlphabet, flowId[i]) < 0 {
			return false
		}
	}

	return true
}
