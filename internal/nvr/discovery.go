package nvr

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/smazurov/hikbridge/internal/isapi"
	"github.com/smazurov/hikbridge/internal/logging"
)

const (
	deviceInfoPath = "/ISAPI/System/deviceInfo"
	channelsPath   = "/ISAPI/ContentMgmt/InputProxy/channels"

	rtspPort = 554
)

// StreamType selects which RTSP substream of a channel to use.
type StreamType string

// Stream types map to the RTSP channel path suffix: {channelID}01 for the
// mainstream, 02 for the substream, 03 for the third stream.
const (
	Mainstream  StreamType = "mainstream"
	Substream   StreamType = "substream"
	Thirdstream StreamType = "thirdstream"
)

var streamTypeSuffix = map[StreamType]string{
	Mainstream:  "01",
	Substream:   "02",
	Thirdstream: "03",
}

// DeviceInfo holds identity fields reported by the NVR.
type DeviceInfo struct {
	Name            string `json:"name,omitempty" doc:"Device name"`
	Model           string `json:"model,omitempty" doc:"Hardware model"`
	SerialNumber    string `json:"serial_number,omitempty" doc:"Serial number"`
	FirmwareVersion string `json:"firmware_version,omitempty" doc:"Firmware version"`
	MACAddress      string `json:"mac_address,omitempty" doc:"MAC address"`
}

// Channel is one input channel discovered on the NVR.
type Channel struct {
	ID        int    `json:"id" doc:"Channel identifier"`
	Name      string `json:"name" doc:"Channel name"`
	InputPort int    `json:"input_port" doc:"Physical input port"`
	Enabled   bool   `json:"enabled" doc:"Whether the channel is enabled"`
}

// Discovery queries the NVR for device identity and input channels, and
// builds media URLs for them.
type Discovery struct {
	client *isapi.Client
	logger *slog.Logger
}

// NewDiscovery creates a Discovery over the given client.
func NewDiscovery(client *isapi.Client) *Discovery {
	return &Discovery{
		client: client,
		logger: logging.GetLogger("discovery"),
	}
}

// DeviceInfo fetches NVR identity. Missing fields are left empty rather
// than failing; firmwares disagree on which fields they report.
func (d *Discovery) DeviceInfo(ctx context.Context) (DeviceInfo, error) {
	doc, err := d.client.Get(ctx, deviceInfoPath)
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("failed to get device info: %w", err)
	}

	return DeviceInfo{
		Name:            doc.Text("DeviceInfo", "deviceName"),
		Model:           doc.Text("DeviceInfo", "model"),
		SerialNumber:    doc.Text("DeviceInfo", "serialNumber"),
		FirmwareVersion: doc.Text("DeviceInfo", "firmwareVersion"),
		MACAddress:      doc.Text("DeviceInfo", "macAddress"),
	}, nil
}

// Channels lists the NVR's input proxy channels.
func (d *Discovery) Channels(ctx context.Context) ([]Channel, error) {
	doc, err := d.client.Get(ctx, channelsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to discover channels: %w", err)
	}

	entries := doc.List("InputProxyChannelList", "InputProxyChannel")
	if len(entries) == 0 {
		d.logger.Warn("No channels found in NVR response")
		return nil, nil
	}

	channels := make([]Channel, 0, len(entries))
	for _, entry := range entries {
		id, idErr := strconv.Atoi(entry.Text("id"))
		if idErr != nil {
			d.logger.Warn("Channel with unparsable id, skipping", "id", entry.Text("id"))
			continue
		}

		name := entry.Text("name")
		if name == "" {
			name = fmt.Sprintf("Channel %d", id)
		}

		inputPort, _ := strconv.Atoi(entry.Text("inputPort"))

		channels = append(channels, Channel{
			ID:        id,
			Name:      name,
			InputPort: inputPort,
			Enabled:   true, // assumed when the NVR returns the channel
		})
	}
	return channels, nil
}

// RTSPURL builds the RTSP URL for a channel, credentials embedded.
func (d *Discovery) RTSPURL(channelID int, streamType StreamType) string {
	return fmt.Sprintf("rtsp://%s:%s@%s:%d/Streaming/Channels/%d%s",
		url.QueryEscape(d.client.Username()),
		url.QueryEscape(d.client.Password()),
		d.client.Host(), rtspPort,
		channelID, suffixFor(streamType))
}

// StillImageURL builds the ISAPI snapshot URL for a channel.
func (d *Discovery) StillImageURL(channelID int, streamType StreamType) string {
	return fmt.Sprintf("http://%s:%s@%s:80/ISAPI/Streaming/channels/%d%s/picture?videoResolutionWidth=1920&videoResolutionHeight=1080",
		url.QueryEscape(d.client.Username()),
		url.QueryEscape(d.client.Password()),
		d.client.Host(),
		channelID, suffixFor(streamType))
}

// FFmpegSource builds the transcoder input arguments for a channel's RTSP
// stream.
func (d *Discovery) FFmpegSource(channelID int, streamType StreamType) string {
	return "-rtsp_transport tcp -i " + d.RTSPURL(channelID, streamType)
}

// FFmpegSourceArgs is FFmpegSource as an argument vector for direct spawn.
func (d *Discovery) FFmpegSourceArgs(channelID int, streamType StreamType) []string {
	return []string{"-rtsp_transport", "tcp", "-i", d.RTSPURL(channelID, streamType)}
}

// FFmpegStillSource builds the capture input arguments for a channel's
// still image endpoint.
func (d *Discovery) FFmpegStillSource(channelID int, streamType StreamType) string {
	return "-i " + d.StillImageURL(channelID, streamType)
}

// FFmpegStillSourceArgs is FFmpegStillSource as an argument vector.
func (d *Discovery) FFmpegStillSourceArgs(channelID int, streamType StreamType) []string {
	return []string{"-i", d.StillImageURL(channelID, streamType)}
}

func suffixFor(streamType StreamType) string {
	if suffix, ok := streamTypeSuffix[streamType]; ok {
		return suffix
	}
	return streamTypeSuffix[Mainstream]
}
