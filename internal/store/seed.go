package store

import (
	_ "embed"
	"fmt"
	"os"

	"salesjournal/internal/domain"
)

//go:embed seed.json
var defaultSeed []byte

// DefaultSeed returns the catalog shipped with the binary.
func DefaultSeed() ([]domain.Product, error) {
	products, err := plainCodec.DecodeProducts(defaultSeed)
	if err != nil {
		return nil, fmt.Errorf("decode embedded seed: %w", err)
	}
	return products, nil
}

// LoadSeed reads a catalog seed from path, or the embedded one when path is empty.
func LoadSeed(path string) ([]domain.Product, error) {
	if path == "" {
		return DefaultSeed()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	products, err := plainCodec.DecodeProducts(raw)
	if err != nil {
		return nil, fmt.Errorf("decode seed %s: %w", path, err)
	}
	return products, nil
}
