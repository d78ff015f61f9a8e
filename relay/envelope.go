package relay

import (
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pierrec/lz4/v4"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	EncodingJSON  = "json"
	EncodingProto = "proto"
)

// Envelope is what consumers receive for every forwarded event.
type Envelope struct {
	ID      string              `json:"id"`
	Event   string              `json:"event"`
	Player  string              `json:"player"`
	WhoAmI  int                 `json:"whoAmI"`
	Handled bool                `json:"handled"`
	At      time.Time           `json:"at"`
	Payload jsoniter.RawMessage `json:"payload"`
}

func (env *Envelope) toStruct() (*structpb.Struct, error) {
	var payload map[string]any
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return nil, err
	}

	return structpb.NewStruct(map[string]any{
		"id":      env.ID,
		"event":   env.Event,
		"player":  env.Player,
		"whoAmI":  env.WhoAmI,
		"handled": env.Handled,
		"at":      env.At.UTC().Format(time.RFC3339Nano),
		"payload": payload,
	})
}

func Marshal(env *Envelope, encoding string) ([]byte, error) {
	switch encoding {
	case EncodingJSON, "":
		return json.Marshal(env)
	case EncodingProto:
		st, err := env.toStruct()
		if err != nil {
			return nil, fmt.Errorf("envelope to struct: %w", err)
		}
		return proto.Marshal(st)
	}

	return nil, fmt.Errorf("unknown encoding %q", encoding)
}

// Unmarshal decodes a Marshal result into its generic map form.
func Unmarshal(data []byte, encoding string) (map[string]any, error) {
	switch encoding {
	case EncodingJSON, "":
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case EncodingProto:
		var st structpb.Struct
		if err := proto.Unmarshal(data, &st); err != nil {
			return nil, err
		}
		return st.AsMap(), nil
	}

	return nil, fmt.Errorf("unknown encoding %q", encoding)
}

// ------------------------------------------
// | flag(1) | raw len (uvarint) | lz4 block |
// ------------------------------------------
const (
	blockRaw byte = 0
	blockLz4 byte = 1
)

var errCorruptBlock = errors.New("corrupt compressed block")

func Compress(src []byte) (dest []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			l := runtime.Stack(buf, false)
			err = fmt.Errorf("core dump info[%v]\n%s", r, buf[:l])
		}
	}()

	dest = make([]byte, 1+binary.MaxVarintLen64+lz4.CompressBlockBound(len(src)))
	n := 1 + binary.PutUvarint(dest[1:], uint64(len(src)))

	var c lz4.Compressor
	cnt, err := c.CompressBlock(src, dest[n:])
	if err != nil {
		return nil, err
	}
	if cnt == 0 || cnt >= len(src) {
		dest[0] = blockRaw
		return append(dest[:n], src...), nil
	}

	dest[0] = blockLz4
	return dest[:n+cnt], nil
}

func Uncompress(src []byte) ([]byte, error) {
	if len(src) < 2 {
		return nil, errCorruptBlock
	}

	rawLen, n := binary.Uvarint(src[1:])
	if n <= 0 || rawLen > 1<<24 {
		return nil, errCorruptBlock
	}
	body := src[1+n:]

	switch src[0] {
	case blockRaw:
		if uint64(len(body)) != rawLen {
			return nil, errCorruptBlock
		}
		return append([]byte(nil), body...), nil
	case blockLz4:
		dest := make([]byte, rawLen)
		cnt, err := lz4.UncompressBlock(body, dest)
		if err != nil {
			return nil, err
		}
		if uint64(cnt) != rawLen {
			return nil, errCorruptBlock
		}
		return dest, nil
	}

	return nil, errCorruptBlock
}
