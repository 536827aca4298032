package config

import (
	"errors"
	"fmt"

	"github.com/okian/ladder/internal/domain/model"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig = fmt.Errorf("%w: invalid config", model.ErrConfiguration)
	ErrLoadConfig    = errors.New("load config failed")
)
