package signaling

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/1ureka/p2pchan/internal/transport"
)

// TokenPrefix marks a compact signaling token and its format version.
const TokenPrefix = "p2pc1."

// maxTokenPayload bounds the decompressed size of a token.
const maxTokenPayload = 1 << 20

var (
	tokenEnc cbor.EncMode
	tokenDec cbor.DecMode

	zEnc *zstd.Encoder
	zDec *zstd.Decoder
)

func init() {
	var err error

	tokenEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	tokenDec, err = cbor.DecOptions{MaxArrayElements: 4096}.DecMode()
	if err != nil {
		panic(err)
	}

	zEnc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		panic(err)
	}
	zDec, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxTokenPayload))
	if err != nil {
		panic(err)
	}
}

// EncodeToken packs v into a single line of text suitable for copy-paste:
// deterministic CBOR, zstd-compressed, base64url without padding.
func EncodeToken(v any) (string, error) {
	raw, err := tokenEnc.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}

	packed := zEnc.EncodeAll(raw, nil)
	return TokenPrefix + base64.RawURLEncoding.EncodeToString(packed), nil
}

// DecodeToken reverses EncodeToken. Surrounding whitespace is ignored.
// Anything that is not a valid token yields ErrMalformedSignalingData.
func DecodeToken(token string, v any) error {
	token = strings.TrimSpace(token)
	if !strings.HasPrefix(token, TokenPrefix) {
		return fmt.Errorf("%w: token must start with %q", transport.ErrMalformedSignalingData, TokenPrefix)
	}

	packed, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(token, TokenPrefix))
	if err != nil {
		return fmt.Errorf("%w: token encoding: %v", transport.ErrMalformedSignalingData, err)
	}

	raw, err := zDec.DecodeAll(packed, nil)
	if err != nil {
		return fmt.Errorf("%w: token compression: %v", transport.ErrMalformedSignalingData, err)
	}

	if err := tokenDec.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: token payload: %v", transport.ErrMalformedSignalingData, err)
	}
	return nil
}
