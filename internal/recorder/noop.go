package recorder

// NoopRecorder is used when no audit database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordEvent(_ *Event) error                 { return nil }
func (n *NoopRecorder) RecordTokenSnapshot(_ *TokenSnapshot) error { return nil }
func (n *NoopRecorder) RecordLimitUsage(_ *LimitUsage) error       { return nil }
func (n *NoopRecorder) RecentEvents(_ int) ([]Event, error)        { return nil, nil }
func (n *NoopRecorder) Close() error                               { return nil }
