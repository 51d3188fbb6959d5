package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName 以 JSON 序列化 gRPC 訊息的 content-subtype
// 呼叫端需帶上 grpc.CallContentSubtype(CodecName)
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
