package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/ihebkh25/TTS-Project/pkg/errorsx"
	"github.com/ihebkh25/TTS-Project/pkg/frames"
)

// Decode parses one raw inbound message into a typed frame. Malformed
// payloads return a decode-reasoned error the caller logs and skips; a
// well-formed message with an unrecognized type tag decodes to
// frames.UnknownFrame instead of failing.
func Decode(raw []byte) (frames.Frame, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errorsx.Wrap(fmt.Errorf("parse frame: %w", err), errorsx.ReasonDecode)
	}

	switch env.Type {
	case TypeStatus:
		var msg statusMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, errorsx.Wrap(fmt.Errorf("parse status frame: %w", err), errorsx.ReasonDecode)
		}
		f := frames.NewStatusFrame(msg.Status, msg.Message)
		if msg.Text != nil {
			f = f.WithFinalText(*msg.Text)
		}
		return f, nil

	case TypeToken:
		var msg tokenMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, errorsx.Wrap(fmt.Errorf("parse token frame: %w", err), errorsx.ReasonDecode)
		}
		return frames.NewTokenFrame(msg.Token, msg.Text), nil

	case TypeAudioChunk:
		var msg audioChunkMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, errorsx.Wrap(fmt.Errorf("parse audio frame: %w", err), errorsx.ReasonDecode)
		}
		buf := frames.AcquireAudioBuf(base64.StdEncoding.DecodedLen(len(msg.Audio)))
		n, err := base64.StdEncoding.Decode(buf, []byte(msg.Audio))
		if err != nil {
			frames.ReleaseAudioBuf(buf)
			return nil, errorsx.Wrap(fmt.Errorf("decode audio payload: %w", err), errorsx.ReasonDecode)
		}
		return frames.NewPooledAudioFrame(buf[:n], msg.SampleRate), nil

	case TypeError:
		var msg errorMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, errorsx.Wrap(fmt.Errorf("parse error frame: %w", err), errorsx.ReasonDecode)
		}
		return frames.NewErrorFrame(msg.Error), nil

	default:
		return frames.NewUnknownFrame(env.Type, raw), nil
	}
}
