package encoder

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodecName is registered with grpc-go as a content subtype so the
// encoder client can move plain Go structs over gRPC's framing and flow
// control without protobuf code generation (there is no .proto for this
// private wire contract — generating fake stub code would be worse than
// not using protobuf at all). grpc-go still carries protobuf transitively
// for its own internal status/error types; this codec only governs request
// and response bodies exchanged with the encoder service.
const jsonCodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

// encodeRequest is the wire request for the Encode RPC.
type encodeRequest struct {
	Texts []string `json:"texts"`
}

// encodeResponse is the wire response: embeddings in column-major order
// (column i occupies Embeddings[i*Dim:(i+1)*Dim]) plus one doclen per
// requested text.
type encodeResponse struct {
	Dim        int       `json:"dim"`
	Embeddings []float32 `json:"embeddings"`
	Doclens    []int     `json:"doclens"`
}
