package protocol

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/ihebkh25/TTS-Project/pkg/errorsx"
	"github.com/ihebkh25/TTS-Project/pkg/frames"
)

func TestDecodeStatusFrame(t *testing.T) {
	f, err := Decode([]byte(`{"type":"status","status":"started","message":"generating reply"}`))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	sf, ok := f.(frames.StatusFrame)
	if !ok {
		t.Fatalf("expected status frame, got %T", f)
	}
	if sf.Phase() != "started" || sf.Detail() != "generating reply" {
		t.Fatalf("unexpected status fields: %q %q", sf.Phase(), sf.Detail())
	}
	if _, ok := sf.FinalText(); ok {
		t.Fatalf("did not expect final text")
	}
}

func TestDecodeCompletionStatusCarriesText(t *testing.T) {
	f, err := Decode([]byte(`{"type":"status","status":"complete","message":"done","text":"Hi there"}`))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	sf := f.(frames.StatusFrame)
	if sf.Phase() != frames.PhaseComplete {
		t.Fatalf("expected complete phase, got %q", sf.Phase())
	}
	text, ok := sf.FinalText()
	if !ok || text != "Hi there" {
		t.Fatalf("expected final text, got %q ok=%v", text, ok)
	}
}

func TestDecodeTokenFrame(t *testing.T) {
	f, err := Decode([]byte(`{"type":"token","token":" there","text":"Hi there"}`))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	tf := f.(frames.TokenFrame)
	if tf.Token() != " there" {
		t.Fatalf("unexpected token: %q", tf.Token())
	}
	if tf.Cumulative() != "Hi there" {
		t.Fatalf("unexpected cumulative text: %q", tf.Cumulative())
	}
}

func TestDecodeAudioChunkFrame(t *testing.T) {
	pcm := bytes.Repeat([]byte{0x7f, 0x80}, 512)
	payload := base64.StdEncoding.EncodeToString(pcm)
	f, err := Decode([]byte(`{"type":"audio_chunk","audio":"` + payload + `","sample_rate":22050}`))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	af := f.(frames.AudioFrame)
	if af.Size() != 1024 {
		t.Fatalf("expected 1024 bytes, got %d", af.Size())
	}
	if af.SampleRate() != 22050 {
		t.Fatalf("unexpected sample rate: %d", af.SampleRate())
	}
	if !bytes.Equal(af.Data(), pcm) {
		t.Fatalf("audio payload mismatch")
	}
	if !frames.ReleaseAudioFrame(af) {
		t.Fatalf("expected pooled audio frame")
	}
}

func TestDecodeErrorFrame(t *testing.T) {
	f, err := Decode([]byte(`{"type":"error","error":"backend overloaded"}`))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	ef := f.(frames.ErrorFrame)
	if ef.Message() != "backend overloaded" {
		t.Fatalf("unexpected message: %q", ef.Message())
	}
}

func TestDecodeUnknownTypeIsNotAnError(t *testing.T) {
	f, err := Decode([]byte(`{"type":"mel_frame","mel":[0.1,0.2]}`))
	if err != nil {
		t.Fatalf("unknown type must not fail: %v", err)
	}
	uf, ok := f.(frames.UnknownFrame)
	if !ok {
		t.Fatalf("expected unknown frame, got %T", f)
	}
	if uf.WireType() != "mel_frame" {
		t.Fatalf("unexpected wire type: %q", uf.WireType())
	}
}

func TestDecodeMalformedPayload(t *testing.T) {
	_, err := Decode([]byte(`{"type":"token"`))
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if !errorsx.HasReason(err, errorsx.ReasonDecode) {
		t.Fatalf("expected decode reason, got %s", errorsx.Reason(err))
	}
}

func TestDecodeBadBase64Audio(t *testing.T) {
	_, err := Decode([]byte(`{"type":"audio_chunk","audio":"not base64!!","sample_rate":22050}`))
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if !errorsx.HasReason(err, errorsx.ReasonDecode) {
		t.Fatalf("expected decode reason, got %s", errorsx.Reason(err))
	}
}
