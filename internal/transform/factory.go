package transform

import (
	"fmt"
	"strings"

	"github.com/dyne/tabledump/internal/config"
)

func Build(cfg *config.TransformConfig, policy StringPolicy) (Transformer, error) {
	if cfg == nil {
		return nil, nil
	}
	switch strings.ToLower(cfg.Type) {
	case "", "none":
		return nil, nil
	case "date":
		return NewDateFormat(policy), nil
	case "datetime":
		return NewDateTimeFormat(policy), nil
	case "time", "timeformat":
		if cfg.Layout == "" {
			return nil, fmt.Errorf("%s transformer requires layout", cfg.Type)
		}
		return NewTimeFormat(cfg.Layout, policy), nil
	case "hashsha256":
		return NewHashSha256(cfg.Salt, cfg.MaxLen), nil
	case "regexreplace":
		return NewRegexReplace(cfg.Pattern, cfg.Replace)
	case "map":
		return NewMapReplace(cfg.Map), nil
	case "setnull":
		return &SetNull{}, nil
	case "trim":
		return &Trim{}, nil
	default:
		return nil, fmt.Errorf("unknown transformer type: %s", cfg.Type)
	}
}

// BuildAll builds the transformer for every configured column.
func BuildAll(columns map[string]*config.TransformConfig, policy StringPolicy) (map[string]Transformer, error) {
	result := map[string]Transformer{}
	for col, tc := range columns {
		tr, err := Build(tc, policy)
		if err != nil {
			return nil, fmt.Errorf("build transformer %s: %w", col, err)
		}
		if tr != nil {
			result[col] = tr
		}
	}
	return result, nil
}
