// Package streaming tracks per-viewer SRTP sessions and the transcoder
// process behind each one.
package streaming

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/smazurov/hikbridge/internal/events"
	"github.com/smazurov/hikbridge/internal/ffmpeg"
	"github.com/smazurov/hikbridge/internal/logging"
	"github.com/smazurov/hikbridge/internal/metrics"
	"github.com/smazurov/hikbridge/internal/nvr"
	"github.com/smazurov/hikbridge/internal/process"
)

// Manager owns the session table. Sessions are keyed by opaque ids the
// viewer supplies; at most one live transcoder process exists per session.
type Manager struct {
	ffmpegPath string
	discovery  *nvr.Discovery
	settings   SettingsFunc
	bus        *events.Bus

	logger       *slog.Logger
	ffmpegLogger *slog.Logger

	portTimeout time.Duration
	spawn       func(process.Options) (*process.Handle, error)

	mu       sync.Mutex
	sessions map[string]*session
}

// NewManager creates a session manager. settings resolves per-camera
// limits at start time so config reloads apply to new sessions without
// restarting the manager.
func NewManager(ffmpegPath string, discovery *nvr.Discovery, settings SettingsFunc, bus *events.Bus) *Manager {
	return &Manager{
		ffmpegPath:   ffmpegPath,
		discovery:    discovery,
		settings:     settings,
		bus:          bus,
		logger:       logging.GetLogger("streaming"),
		ffmpegLogger: logging.GetLogger("ffmpeg"),
		portTimeout:  defaultPortTimeout,
		spawn:        process.Spawn,
		sessions:     make(map[string]*session),
	}
}

// PrepareSession allocates four ephemeral UDP ports and per-media SSRCs,
// stores a pending session under the caller's id, and echoes the viewer's
// SRTP key material back. Key material is never generated here.
func (m *Manager) PrepareSession(req PrepareRequest) (PrepareResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[req.SessionID]; exists {
		return PrepareResult{}, NewSessionError(ErrCodeSessionExists,
			fmt.Sprintf("session %q already prepared", req.SessionID), nil)
	}

	ports, err := allocateUDPPorts(4, m.portTimeout)
	if err != nil {
		return PrepareResult{}, err
	}

	s := &session{
		id:        req.SessionID,
		channelID: req.ChannelID,
		address:   req.Address,
		state:     StatePending,
		createdAt: time.Now(),
		video: MediaTransport{
			Port:        req.VideoPort,
			SRTPKey:     req.VideoKey,
			SRTPSalt:    req.VideoSalt,
			SSRC:        newSSRC(),
			ForwardPort: ports[0],
			ReturnPort:  ports[1],
		},
		audio: MediaTransport{
			Port:        req.AudioPort,
			SRTPKey:     req.AudioKey,
			SRTPSalt:    req.AudioSalt,
			SSRC:        newSSRC(),
			ForwardPort: ports[2],
			ReturnPort:  ports[3],
		},
	}
	m.sessions[req.SessionID] = s

	m.logger.Debug("Session prepared",
		"session_id", req.SessionID, "channel", req.ChannelID,
		"video_port", req.VideoPort, "address", req.Address)

	return PrepareResult{
		VideoForwardPort: s.video.ForwardPort,
		VideoReturnPort:  s.video.ReturnPort,
		AudioForwardPort: s.audio.ForwardPort,
		AudioReturnPort:  s.audio.ReturnPort,
		VideoSSRC:        s.video.SSRC,
		AudioSSRC:        s.audio.SSRC,
		VideoKey:         req.VideoKey,
		VideoSalt:        req.VideoSalt,
		AudioKey:         req.AudioKey,
		AudioSalt:        req.AudioSalt,
	}, nil
}

// StartSession clamps the viewer's video parameters against the camera's
// configuration, spawns the transcoder, and promotes the session to active.
// Requires a pending entry; a failed spawn removes the session so nothing
// dangles. Readiness is implicit: active means the spawn was issued.
func (m *Manager) StartSession(req StartRequest) error {
	m.mu.Lock()

	s, ok := m.sessions[req.SessionID]
	if !ok || s.state != StatePending {
		m.mu.Unlock()
		return ErrSessionNotFound(req.SessionID)
	}

	settings := m.settings(s.channelID)
	profile := ffmpeg.ResolveProfile(settings.Acceleration)

	width, height := ffmpeg.ClampDimensions(req.Width, req.Height, settings.MaxWidth, settings.MaxHeight)
	fps := ffmpeg.ClampFPS(req.FPS, settings.MaxFPS)
	bitrate := ffmpeg.ClampBitrate(req.Bitrate, settings.MinBitrate, settings.MaxBitrate)

	args := ffmpeg.BuildVideoArgs(ffmpeg.VideoSpec{
		InputArgs:        m.discovery.FFmpegSourceArgs(s.channelID, settings.StreamType),
		Width:            width,
		Height:           height,
		FPS:              fps,
		Bitrate:          bitrate,
		Profile:          profile,
		HWDevice:         settings.HWDevice,
		FlipHorizontal:   settings.FlipHorizontal,
		FlipVertical:     settings.FlipVertical,
		CustomFilter:     settings.CustomFilter,
		ExtraEncoderArgs: settings.ExtraEncoderArgs,
		Debug:            settings.Debug,
		Target: ffmpeg.Target{
			Address:     s.address,
			Port:        s.video.Port,
			PayloadType: 99,
			SSRC:        s.video.SSRC,
			SRTPParams:  s.video.srtpParams(),
			PacketSize:  settings.PacketSize,
		},
	})
	if settings.AudioEnabled {
		args = ffmpeg.AppendAudioArgs(args, ffmpeg.AudioSpec{
			Codec:      settings.AudioCodec,
			SampleRate: 16,
			Channels:   1,
			Bitrate:    24,
			Target: ffmpeg.Target{
				Address:     s.address,
				Port:        s.audio.Port,
				PayloadType: 110,
				SSRC:        s.audio.SSRC,
				SRTPParams:  s.audio.srtpParams(),
			},
		})
	}

	handle, err := m.spawn(process.Options{
		Name:         "transcode-" + req.SessionID,
		Binary:       m.ffmpegPath,
		Args:         args,
		Logger:       m.logger,
		OutputLogger: m.ffmpegLogger,
		Parser:       ffmpeg.ParseLogLine,
	})
	if err != nil {
		delete(m.sessions, req.SessionID)
		m.mu.Unlock()
		m.logger.Error("Transcoder spawn failed",
			"session_id", req.SessionID, "channel", s.channelID, "error", err)
		return NewSessionError(ErrCodeSpawnFailed, "failed to start transcoder", err)
	}

	s.handle = handle
	s.state = StateActive
	active := m.activeCountLocked()
	m.mu.Unlock()

	m.logger.Info("Session started",
		"session_id", req.SessionID, "channel", s.channelID,
		"resolution", fmt.Sprintf("%dx%d", width, height),
		"fps", fps, "bitrate", bitrate,
		"profile", profile.Description, "pid", handle.PID())

	metrics.CountSessionStarted()
	metrics.SetActiveSessions(active)
	m.bus.Publish(events.SessionStartedEvent{
		SessionID: req.SessionID,
		ChannelID: s.channelID,
		Width:     width,
		Height:    height,
		Bitrate:   bitrate,
		Timestamp: time.Now().Format(time.RFC3339),
	})

	go m.watchProcess(req.SessionID, handle)
	return nil
}

// watchProcess turns an unexpected transcoder exit into a session stop.
// After an explicit stop the session is already gone and this is a no-op.
func (m *Manager) watchProcess(sessionID string, handle *process.Handle) {
	<-handle.Done()
	status := handle.ExitStatus()
	metrics.CountTranscoderExit(status.Code)

	m.mu.Lock()
	_, alive := m.sessions[sessionID]
	m.mu.Unlock()
	if alive {
		m.logger.Warn("Transcoder exited unexpectedly",
			"session_id", sessionID, "exit_code", status.Code)
		m.StopSession(sessionID, "process_exit")
	}
}

// Reconfigure acknowledges a mid-stream parameter change without acting on
// it. Transcoder restarts glitch the viewer worse than a stale bitrate.
func (m *Manager) Reconfigure(sessionID string) {
	m.mu.Lock()
	_, known := m.sessions[sessionID]
	m.mu.Unlock()
	m.logger.Info("Reconfigure acknowledged, not applied",
		"session_id", sessionID, "known", known)
}

// StopSession kills the session's transcoder, if any, and removes the
// session. Idempotent: stopping an unknown or already-stopped id is a
// no-op. Also invoked by the process-exit watcher, so explicit stops and
// crashes converge on the same path.
func (m *Manager) StopSession(sessionID, reason string) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, sessionID)
	s.state = StateStopped
	active := m.activeCountLocked()
	m.mu.Unlock()

	if s.handle != nil {
		s.handle.Kill()
	}

	m.logger.Info("Session stopped", "session_id", sessionID, "reason", reason)
	metrics.CountSessionStopped(reason)
	metrics.SetActiveSessions(active)
	m.bus.Publish(events.SessionStoppedEvent{
		SessionID: sessionID,
		ChannelID: s.channelID,
		Reason:    reason,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// StopAll tears down every session. Called at shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.StopSession(id, "shutdown")
	}
}

// Sessions returns a point-in-time view of the table, oldest first.
func (m *Manager) Sessions() []SessionInfo {
	m.mu.Lock()
	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.info())
	}
	m.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

func (m *Manager) activeCountLocked() int {
	n := 0
	for _, s := range m.sessions {
		if s.state == StateActive {
			n++
		}
	}
	return n
}
