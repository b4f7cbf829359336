package isapi

import (
	"testing"
)

func TestParseXMLSimpleElements(t *testing.T) {
	doc, err := ParseXML([]byte(`<DeviceInfo>
		<deviceName>Garage NVR</deviceName>
		<model>DS-7608NI-K2</model>
		<firmwareVersion>V4.30.085</firmwareVersion>
	</DeviceInfo>`))
	if err != nil {
		t.Fatalf("ParseXML failed: %v", err)
	}

	if got := doc.Text("DeviceInfo", "deviceName"); got != "Garage NVR" {
		t.Errorf("deviceName = %q", got)
	}
	if got := doc.Text("DeviceInfo", "firmwareVersion"); got != "V4.30.085" {
		t.Errorf("firmwareVersion = %q", got)
	}
}

func TestParseXMLMergesAttributes(t *testing.T) {
	doc, err := ParseXML([]byte(`<InputProxyChannel version="2.0"><id>1</id></InputProxyChannel>`))
	if err != nil {
		t.Fatalf("ParseXML failed: %v", err)
	}
	if got := doc.Text("InputProxyChannel", "version"); got != "2.0" {
		t.Errorf("version attribute = %q", got)
	}
	if got := doc.Text("InputProxyChannel", "id"); got != "1" {
		t.Errorf("id = %q", got)
	}
}

func TestListHandlesSingleAndRepeated(t *testing.T) {
	single, err := ParseXML([]byte(`<InputProxyChannelList><InputProxyChannel><id>1</id></InputProxyChannel></InputProxyChannelList>`))
	if err != nil {
		t.Fatal(err)
	}
	if got := single.List("InputProxyChannelList", "InputProxyChannel"); len(got) != 1 {
		t.Errorf("single channel: len = %d, want 1", len(got))
	}

	multi, err := ParseXML([]byte(`<InputProxyChannelList>
		<InputProxyChannel><id>1</id><name>Front</name></InputProxyChannel>
		<InputProxyChannel><id>2</id><name>Back</name></InputProxyChannel>
	</InputProxyChannelList>`))
	if err != nil {
		t.Fatal(err)
	}
	channels := multi.List("InputProxyChannelList", "InputProxyChannel")
	if len(channels) != 2 {
		t.Fatalf("len = %d, want 2", len(channels))
	}
	if got := channels[1].Text("name"); got != "Back" {
		t.Errorf("second channel name = %q", got)
	}
}

func TestTextMissingPathIsEmpty(t *testing.T) {
	doc, err := ParseXML([]byte(`<a><b>x</b></a>`))
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Text("a", "missing", "deeper"); got != "" {
		t.Errorf("missing path = %q, want empty", got)
	}
}

func TestParseXMLEmptyInput(t *testing.T) {
	if _, err := ParseXML(nil); err == nil {
		t.Error("expected error for empty document")
	}
}

func TestParseXMLMixedContent(t *testing.T) {
	doc, err := ParseXML([]byte(`<alert channel="5">text<sub>y</sub></alert>`))
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Text("alert", "channel"); got != "5" {
		t.Errorf("channel = %q", got)
	}
	if got := doc.Text("alert", "sub"); got != "y" {
		t.Errorf("sub = %q", got)
	}
	if got := doc.Text("alert", "#text"); got != "text" {
		t.Errorf("#text = %q", got)
	}
}
