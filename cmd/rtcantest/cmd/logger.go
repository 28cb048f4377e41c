package cmd

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	lcfg := zap.NewDevelopmentConfig()
	lcfg.Encoding = "console"
	lcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	lcfg.DisableStacktrace = true
	lcfg.DisableCaller = true
	lcfg.OutputPaths = []string{"stderr"}
	lcfg.Level.SetLevel(lvl)
	return lcfg.Build()
}
