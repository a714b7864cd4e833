package channel

import (
	"encoding/json"

	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/ld"
)

// FrameType tags the payload carried by a Frame.
type FrameType string

const (
	FrameCommand  FrameType = "command"
	FrameResponse FrameType = "response"
	FrameError    FrameType = "error"
)

// Frame is the unit exchanged over every transport.
type Frame struct {
	Type     FrameType    `json:"type"`
	Command  *ld.Command  `json:"command,omitempty"`
	Response *ld.Response `json:"response,omitempty"`
	Error    string       `json:"error,omitempty"`
}

func EncodeCommand(cmd ld.Command) ([]byte, error) {
	return encode(Frame{Type: FrameCommand, Command: &cmd})
}

func EncodeResponse(resp ld.Response) ([]byte, error) {
	return encode(Frame{Type: FrameResponse, Response: &resp})
}

// EncodeError builds a transport-level error frame. These never carry a
// Response and never count as a command's terminal reply.
func EncodeError(msg string) []byte {
	data, err := encode(Frame{Type: FrameError, Error: msg})
	if err != nil {
		// A string-only frame always marshals.
		panic(err)
	}
	return data
}

func encode(f Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s frame", f.Type)
	}
	return data, nil
}

// Decode parses and validates a frame. Failures match errors.ErrInvalidFrame.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, errors.WrapInvalidFrame(err, "decode frame")
	}
	switch f.Type {
	case FrameCommand:
		if f.Command == nil {
			return Frame{}, errors.WrapInvalidFrame(errors.New("missing command"), "decode command frame")
		}
		if f.Command.Arguments == nil {
			f.Command.Arguments = []string{}
		}
	case FrameResponse:
		if f.Response == nil {
			return Frame{}, errors.WrapInvalidFrame(errors.New("missing response"), "decode response frame")
		}
	case FrameError:
	default:
		return Frame{}, errors.WrapInvalidFrame(errors.Newf("unknown frame type %q", f.Type), "decode frame")
	}
	return f, nil
}

// DecodeCommand decodes a frame that must carry a command.
func DecodeCommand(data []byte) (ld.Command, error) {
	f, err := Decode(data)
	if err != nil {
		return ld.Command{}, err
	}
	if f.Type != FrameCommand {
		return ld.Command{}, errors.WrapInvalidFrame(
			errors.Newf("unexpected %s frame", f.Type), "decode command frame")
	}
	return *f.Command, nil
}
