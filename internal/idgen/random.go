package idgen

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/nrednav/cuid2"
	"github.com/oklog/ulid/v2"
	"github.com/segmentio/ksuid"
)

const DefaultNanoIDAlphabet = "_-0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

type ULIDGenerator struct{}

func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

func (g *ULIDGenerator) Generate() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}

func (g *ULIDGenerator) Validate(id string) (bool, string) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return false, fmt.Sprintf("invalid ULID format: %v", err)
	}
	return true, ""
}

type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) Generate() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %w", err)
	}
	return id.String(), nil
}

func (g *UUIDGenerator) Validate(id string) (bool, string) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false, fmt.Sprintf("invalid UUID format: %v", err)
	}
	if parsed.Version() != 4 {
		return false, fmt.Sprintf("expected UUID v4, got v%d", parsed.Version())
	}
	return true, ""
}

type KSUIDGenerator struct{}

func NewKSUIDGenerator() *KSUIDGenerator {
	return &KSUIDGenerator{}
}

func (g *KSUIDGenerator) Generate() (string, error) {
	id, err := ksuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate KSUID: %w", err)
	}
	return id.String(), nil
}

func (g *KSUIDGenerator) Validate(id string) (bool, string) {
	if _, err := ksuid.Parse(id); err != nil {
		return false, fmt.Sprintf("invalid KSUID format: %v", err)
	}
	return true, ""
}

// NanoIDGenerator produces fixed-size ids over a configurable alphabet.
type NanoIDGenerator struct {
	size     int
	alphabet string
}

func NewNanoIDGenerator(size int, alphabet string) (*NanoIDGenerator, error) {
	if size < 1 || size > 64 {
		return nil, fmt.Errorf("nanoid size must be between 1 and 64, got %d", size)
	}
	if len(alphabet) < 2 {
		return nil, fmt.Errorf("nanoid alphabet must have at least 2 characters, got %d", len(alphabet))
	}
	return &NanoIDGenerator{size: size, alphabet: alphabet}, nil
}

func (g *NanoIDGenerator) Generate() (string, error) {
	id, err := gonanoid.Generate(g.alphabet, g.size)
	if err != nil {
		return "", fmt.Errorf("failed to generate NanoID: %w", err)
	}
	return id, nil
}

func (g *NanoIDGenerator) Validate(id string) (bool, string) {
	if len(id) != g.size {
		return false, fmt.Sprintf("expected length %d, got %d", g.size, len(id))
	}
	for _, c := range id {
		if !strings.ContainsRune(g.alphabet, c) {
			return false, fmt.Sprintf("character '%c' not in alphabet", c)
		}
	}
	return true, ""
}

type CUID2Generator struct {
	length   int
	generate func() string
}

func NewCUID2Generator(length int) (*CUID2Generator, error) {
	if length < 2 || length > 32 {
		return nil, fmt.Errorf("cuid2 length must be between 2 and 32, got %d", length)
	}
	gen, err := cuid2.Init(cuid2.WithLength(length))
	if err != nil {
		return nil, fmt.Errorf("failed to init CUID2 generator: %w", err)
	}
	return &CUID2Generator{length: length, generate: gen}, nil
}

func (g *CUID2Generator) Generate() (string, error) {
	return g.generate(), nil
}

func (g *CUID2Generator) Validate(id string) (bool, string) {
	if len(id) != g.length {
		return false, fmt.Sprintf("expected length %d, got %d", g.length, len(id))
	}
	if !cuid2.IsCuid(id) {
		return false, "invalid CUID2 format"
	}
	return true, ""
}
