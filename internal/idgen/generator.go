package idgen

import (
	"fmt"

	"github.com/weiawesome/wes-io-chat/internal/config"
)

// Generator produces message identifiers.
type Generator interface {
	Generate() (string, error)
	Validate(id string) (bool, string) // (valid, reason)
}

// New picks a generator for cfg.Strategy.
func New(cfg config.IDConfig) (Generator, error) {
	switch cfg.Strategy {
	case "", "snowflake":
		return NewSnowflakeGenerator(cfg.MachineID, cfg.Epoch)
	case "ulid":
		return NewULIDGenerator(), nil
	case "uuid":
		return NewUUIDGenerator(), nil
	case "ksuid":
		return NewKSUIDGenerator(), nil
	case "nanoid":
		return NewNanoIDGenerator(cfg.NanoIDSize, DefaultNanoIDAlphabet)
	case "cuid2":
		return NewCUID2Generator(cfg.CUID2Length)
	default:
		return nil, fmt.Errorf("unknown id strategy %q", cfg.Strategy)
	}
}
