package rtcan

import "go.uber.org/zap"

type Opts func(b *Bus)

// OptLogger sets the logger used for open steps and swallowed option
// failures. The default discards everything.
func OptLogger(l *zap.Logger) Opts {
	return func(b *Bus) {
		if l != nil {
			b.log = l
		}
	}
}

func optSockets(s sockets) Opts {
	return func(b *Bus) {
		b.sys = s
	}
}
