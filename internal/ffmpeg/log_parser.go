package ffmpeg

import "strings"

// ParseLogLine extracts the log level from one line of FFmpeg stderr.
// With -loglevel level+info FFmpeg prefixes lines as "[info] message" or
// "[component @ 0x...] [level] message". Returns the level name and the
// message with the level stripped but any component prefix preserved.
// Lines without a recognizable level are reported as info.
func ParseLogLine(line string) (level, msg string) {
	if len(line) < 3 || line[0] != '[' {
		return "info", line
	}

	end := strings.Index(line, "] ")
	if end == -1 {
		return "info", line
	}

	bracket := line[1:end]
	if isLogLevel(bracket) {
		return bracket, line[end+2:]
	}

	// Component-prefixed form: keep the component, strip only the level.
	component := line[:end+2]
	rest := line[end+2:]
	if len(rest) > 2 && rest[0] == '[' {
		if nextEnd := strings.Index(rest, "] "); nextEnd != -1 {
			if isLogLevel(rest[1:nextEnd]) {
				return rest[1:nextEnd], component + rest[nextEnd+2:]
			}
		}
	}

	return "info", line
}

func isLogLevel(s string) bool {
	switch s {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace":
		return true
	}
	return false
}
