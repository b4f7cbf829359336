package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/smazurov/hikbridge/internal/events"
	"github.com/smazurov/hikbridge/internal/isapi"
	"github.com/smazurov/hikbridge/internal/nvr"
	"github.com/smazurov/hikbridge/internal/process"
	"github.com/smazurov/hikbridge/internal/snapshot"
	"github.com/smazurov/hikbridge/internal/streaming"
)

const deviceInfoXML = `<?xml version="1.0" encoding="UTF-8"?>
<DeviceInfo>
	<deviceName>Test NVR</deviceName>
	<model>DS-7608NI</model>
	<serialNumber>0820231107</serialNumber>
	<firmwareVersion>V4.62.210</firmwareVersion>
</DeviceInfo>`

const channelsXML = `<?xml version="1.0" encoding="UTF-8"?>
<InputProxyChannelList>
	<InputProxyChannel><id>1</id><name>Driveway</name></InputProxyChannel>
	<InputProxyChannel><id>2</id><name>Backyard</name></InputProxyChannel>
</InputProxyChannelList>`

// newTestServer stands up a fake NVR plus the bridge API in front of it.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	nvrServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ISAPI/System/deviceInfo":
			io.WriteString(w, deviceInfoXML)
		case "/ISAPI/ContentMgmt/InputProxy/channels":
			io.WriteString(w, channelsXML)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(nvrServer.Close)

	u, err := url.Parse(nvrServer.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(u.Port())

	client := isapi.NewClient(isapi.Credentials{
		Host: u.Hostname(), Port: port, Username: "admin", Password: "pw",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	discovery := nvr.NewDiscovery(client)
	bus := events.New()

	sessions := streaming.NewManager("ffmpeg", discovery,
		func(int) streaming.CameraSettings { return streaming.CameraSettings{} }, bus)
	t.Cleanup(sessions.StopAll)

	snapshots := snapshot.NewFetcher("ffmpeg",
		func(int) []string { return []string{"-i", "http://unused"} }, bus)
	snapshots.SetSpawner(func(opts process.Options) (*process.Handle, error) {
		return process.Spawn(process.Options{
			Name:          opts.Name,
			Binary:        "sh",
			Args:          []string{"-c", "printf jpegdata"},
			Logger:        opts.Logger,
			CaptureStdout: true,
		})
	})

	server := NewServer(&Options{
		AuthUsername: "api",
		AuthPassword: "secret",
		Discovery:    discovery,
		Sessions:     sessions,
		Snapshots:    snapshots,
	})

	ts := httptest.NewServer(server.GetMux())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path string, auth bool) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if auth {
		req.SetBasicAuth("api", "secret")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthNoAuthRequired(t *testing.T) {
	ts := newTestServer(t)
	if resp := get(t, ts, "/api/health", false); resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)
	resp := get(t, ts, "/api/device", false)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if resp.Header.Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate challenge")
	}
}

func TestGetDevice(t *testing.T) {
	ts := newTestServer(t)
	resp := get(t, ts, "/api/device", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Name != "Test NVR" || body.Model != "DS-7608NI" {
		t.Errorf("body = %+v", body)
	}
}

func TestListChannels(t *testing.T) {
	ts := newTestServer(t)
	resp := get(t, ts, "/api/channels", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Count    int `json:"count"`
		Channels []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"channels"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 2 || body.Channels[0].Name != "Driveway" {
		t.Errorf("body = %+v", body)
	}
}

func TestListSessionsEmpty(t *testing.T) {
	ts := newTestServer(t)
	resp := get(t, ts, "/api/sessions", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 0 {
		t.Errorf("count = %d", body.Count)
	}
}

func TestGetSnapshot(t *testing.T) {
	ts := newTestServer(t)
	resp := get(t, ts, "/api/channels/1/snapshot", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "jpegdata" {
		t.Errorf("body = %q", data)
	}
}

func TestDeviceUpstreamFailure(t *testing.T) {
	client := isapi.NewClient(isapi.Credentials{
		Host: "127.0.0.1", Port: 1, Username: "a", Password: "b",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	discovery := nvr.NewDiscovery(client)
	bus := events.New()

	server := NewServer(&Options{
		AuthUsername: "api",
		AuthPassword: "secret",
		Discovery:    discovery,
		Sessions: streaming.NewManager("ffmpeg", discovery,
			func(int) streaming.CameraSettings { return streaming.CameraSettings{} }, bus),
		Snapshots: snapshot.NewFetcher("ffmpeg",
			func(int) []string { return nil }, bus),
	})
	ts := httptest.NewServer(server.GetMux())
	t.Cleanup(ts.Close)

	resp := get(t, ts, "/api/device", true)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}
