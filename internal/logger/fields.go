package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Field keys shared by pipeline logs.
const (
	FieldAgent     = "agent"
	FieldRunID     = "run_id"
	FieldCandidate = "candidate_id"
	FieldProvider  = "ai_provider"
	FieldModel     = "ai_model"
)

// StringField is a key/value pair dropped from logs when either side is blank.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts pairs into zap fields, trimming both sides and
// skipping blank ones, so optional ids never show up as "".
func StringFields(fields ...StringField) []zap.Field {
	var result []zap.Field
	for _, f := range fields {
		key, value := strings.TrimSpace(f.Key), strings.TrimSpace(f.Value)
		if key != "" && value != "" {
			result = append(result, zap.String(key, value))
		}
	}
	return result
}

// WithFields attaches fields to logger. A nil logger becomes a no-op one.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// ForAgent tags logger with the agent name and the pipeline run id.
func ForAgent(logger *zap.Logger, agent, runID string) *zap.Logger {
	return WithFields(logger, StringFields(
		StringField{FieldAgent, agent},
		StringField{FieldRunID, runID},
	)...)
}

// WithAI tags logger with the model provider and model name.
func WithAI(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, StringFields(
		StringField{FieldProvider, provider},
		StringField{FieldModel, model},
	)...)
}
