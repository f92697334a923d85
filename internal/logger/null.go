package logger

type NullLogger struct{}

var _ Logger = (*NullLogger)(nil)

func (NullLogger) Successf(_ string, _ ...interface{}) {}

func (NullLogger) Debugf(_ string, _ ...interface{}) {}

func (NullLogger) Warnf(_ string, _ ...interface{}) {}

func (NullLogger) SQL(_ string, _ ...interface{}) {}

func (NullLogger) Error(_ error) {}
