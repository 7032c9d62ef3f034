package app

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "tutor_scheduler"

// NewLogger создаёт логгер: JSON в production, цветной консольный вывод в остальных окружениях.
// Время пишется в часовом поясе расписания, чтобы совпадать с датами занятий.
func NewLogger(env string, loc *time.Location) (*zap.Logger, error) {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if loc == nil {
		loc = time.UTC
	}
	config.EncoderConfig.EncodeTime = scheduleTimeEncoder(loc)
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
		"env":     env,
	}
	config.OutputPaths = []string{"stdout"}

	return config.Build()
}

func scheduleTimeEncoder(loc *time.Location) zapcore.TimeEncoder {
	return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.In(loc).Format("2006-01-02T15:04:05.000Z07:00"))
	}
}
