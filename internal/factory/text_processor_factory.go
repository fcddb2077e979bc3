package factory

import (
	"github.com/mikey/vertretungsanalyse/internal/utils"
	"go.uber.org/zap"
)

// TextProcessorFactory creates the text helpers used around an analysis
type TextProcessorFactory struct {
	logger *zap.Logger
}

// NewTextProcessorFactory creates a new TextProcessorFactory
func NewTextProcessorFactory(logger *zap.Logger) *TextProcessorFactory {
	return &TextProcessorFactory{
		logger: logger,
	}
}

// CreateTextProcessor creates a new TextProcessor
func (f *TextProcessorFactory) CreateTextProcessor() *utils.TextProcessor {
	return utils.NewTextProcessor(f.logger)
}

// CreateDateFormatter creates a new DateFormatter
func (f *TextProcessorFactory) CreateDateFormatter() *utils.DateFormatter {
	return utils.NewDateFormatter(f.logger)
}
