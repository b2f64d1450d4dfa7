package logger

import (
	"os"
	"path"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	defaultEncoderCfg = EncoderCfg{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stacktrace",
		Level:         "capitalColor",
		Duration:      "seconds",
		Caller:        "short",
		Encoding:      "console",
	}
	defaultRotateCfg = RotateCfg{
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   false,
	}

	logger = &Logger{
		rotate:  defaultRotateCfg,
		encoder: defaultEncoderCfg,
		Level:   zapcore.InfoLevel,
	}

	infoLevelEnabler = zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl <= zapcore.InfoLevel && lvl >= logger.Level
	})

	warnLevelEnabler = zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl == zapcore.WarnLevel
	})

	errorLevelEnabler = zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})
)

func init() {
	atom := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	core := zapcore.NewCore(
		logger.getEncoder(),
		zapcore.AddSync(os.Stdout),
		atom,
	)
	logger.setZap(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))
}

// Logger holds the process wide zap logger. Files under LogDir are rotated
// by lumberjack: info.log, warn.log and error.log.
type Logger struct {
	logger        *zap.Logger
	sugaredLogger *zap.SugaredLogger

	rotate  RotateCfg
	encoder EncoderCfg

	Level      zapcore.Level
	logOptions *LogOptions
}

type EncoderCfg struct {
	TimeKey       string
	LevelKey      string
	NameKey       string
	CallerKey     string
	MessageKey    string
	StacktraceKey string
	Level         string
	Duration      string
	Caller        string
	Encoding      string // console or json
}

type RotateCfg struct {
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

type LogOptions struct {
	Name     string
	LogLevel string
	LogDir   string
	LineNum  bool
	Encoding string
}

func (l *Logger) setZap(z *zap.Logger) {
	l.logger = z
	l.sugaredLogger = z.Sugar()
}

func (l *Logger) build() {
	opts := []zap.Option{zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.PanicLevel)}
	if l.logOptions.LineNum {
		opts = append(opts, zap.AddCaller())
	}
	if l.logOptions.LogDir == "" {
		core := zapcore.NewCore(l.getEncoder(), zapcore.AddSync(os.Stdout), zap.NewAtomicLevelAt(l.Level))
		l.setZap(zap.New(core, opts...).Named(l.logOptions.Name))
		return
	}
	infoPath := path.Join(l.logOptions.LogDir, "info.log")
	warnPath := path.Join(l.logOptions.LogDir, "warn.log")
	errorPath := path.Join(l.logOptions.LogDir, "error.log")

	z := zap.New(zapcore.NewTee(
		zapcore.NewCore(l.getEncoder(), l.getLogWriter(infoPath), infoLevelEnabler),
		zapcore.NewCore(l.getEncoder(), l.getLogWriter(warnPath), warnLevelEnabler),
		zapcore.NewCore(l.getEncoder(), l.getLogWriter(errorPath), errorLevelEnabler),
	), opts...)
	l.setZap(z.Named(l.logOptions.Name))
}

func (l *Logger) getEncoder() zapcore.Encoder {
	var (
		durationEncoder = new(zapcore.DurationEncoder)
		callerEncoder   = new(zapcore.CallerEncoder)
		nameEncoder     = new(zapcore.NameEncoder)
		levelEncoder    = new(zapcore.LevelEncoder)
	)
	_ = durationEncoder.UnmarshalText([]byte(l.encoder.Duration))
	_ = callerEncoder.UnmarshalText([]byte(l.encoder.Caller))
	_ = nameEncoder.UnmarshalText([]byte("full"))
	_ = levelEncoder.UnmarshalText([]byte(l.encoder.Level))

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        l.encoder.TimeKey,
		LevelKey:       l.encoder.LevelKey,
		NameKey:        l.encoder.NameKey,
		CallerKey:      l.encoder.CallerKey,
		MessageKey:     l.encoder.MessageKey,
		StacktraceKey:  l.encoder.StacktraceKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    *levelEncoder,
		EncodeDuration: *durationEncoder,
		EncodeCaller:   *callerEncoder,
		EncodeName:     *nameEncoder,
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
		},
	}
	if l.encoder.Encoding == "json" {
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func (l *Logger) getLogWriter(path string) zapcore.WriteSyncer {
	lumberJackLogger := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    l.rotate.MaxSize,
		MaxBackups: l.rotate.MaxBackups,
		MaxAge:     l.rotate.MaxAge,
		Compress:   l.rotate.Compress,
	}
	return zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout), zapcore.AddSync(lumberJackLogger))
}

func SetRotate(cfg RotateCfg) {
	if cfg.MaxSize != 0 && cfg.MaxAge != 0 && cfg.MaxBackups != 0 {
		logger.rotate = cfg
	}
}

func InitWithConfig(options *LogOptions) {
	logger.Level = levelOf(options.LogLevel)
	if options.Encoding != "" {
		logger.encoder.Encoding = options.Encoding
	}
	logger.logOptions = options
	logger.build()
}

// Sync flushes buffered entries.
func Sync() error {
	return logger.logger.Sync()
}

func Debug(msg string, fields ...zap.Field) {
	if logger.Level <= zapcore.DebugLevel {
		logger.logger.Debug(msg, fields...)
	}
}

func Debugf(template string, args ...interface{}) {
	if logger.Level <= zapcore.DebugLevel {
		logger.sugaredLogger.Debugf(template, args...)
	}
}

func Info(msg string, fields ...zap.Field) {
	if logger.Level <= zapcore.InfoLevel {
		logger.logger.Info(msg, fields...)
	}
}

func Infof(template string, args ...interface{}) {
	if logger.Level <= zapcore.InfoLevel {
		logger.sugaredLogger.Infof(template, args...)
	}
}

func Warn(msg string, fields ...zap.Field) {
	if logger.Level <= zapcore.WarnLevel {
		logger.logger.Warn(msg, fields...)
	}
}

func Warnf(template string, args ...interface{}) {
	if logger.Level <= zapcore.WarnLevel {
		logger.sugaredLogger.Warnf(template, args...)
	}
}

func Error(msg string, fields ...zap.Field) {
	logger.logger.Error(msg, fields...)
}

func Errorf(template string, args ...interface{}) {
	logger.sugaredLogger.Errorf(template, args...)
}

func Fatal(msg string, fields ...zap.Field) {
	logger.logger.Fatal(msg, fields...)
}

func Panic(msg string, fields ...zap.Field) {
	logger.logger.Panic(msg, fields...)
}

func levelOf(level string) zapcore.Level {
	levelMapping := map[string]zapcore.Level{
		"debug": zap.DebugLevel,
		"info":  zap.InfoLevel,
		"warn":  zap.WarnLevel,
		"error": zap.ErrorLevel,
		"fatal": zap.FatalLevel,
		"panic": zap.PanicLevel,
	}
	if lvl, ok := levelMapping[level]; ok {
		return lvl
	}
	return zap.InfoLevel
}
