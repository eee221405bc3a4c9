package commands

import (
	"time"

	"go.uber.org/zap"

	"github.com/tyemirov/ctxtree/internal/config"
	"github.com/tyemirov/ctxtree/internal/tokenizer"
	"github.com/tyemirov/ctxtree/internal/treesummary"
)

// TreeBuilder builds bounded directory summaries using configured options.
type TreeBuilder struct {
	Limits           treesummary.Limits
	Heuristics       treesummary.Heuristics
	Workers          int
	OperationTimeout time.Duration
	Ignore           config.IgnoreOptions
	ListFiles        bool
	TokenCounter     tokenizer.Counter
	TokenModel       string
	Logger           *zap.Logger
}
