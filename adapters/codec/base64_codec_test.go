package codec

import (
	"encoding/base64"
	"testing"

	"github.com/layer-3/orbisauth/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() core.Session {
	return core.Session{
		Cacao: core.Cacao{
			H: core.CacaoHeader{T: core.HeaderTypeEIP4361},
			P: core.CacaoPayload{
				Domain:    "app.example",
				Iss:       "did:pkh:eip155:1:0xabc",
				Aud:       "https://app.example",
				Version:   "1",
				Nonce:     "n0nce",
				Iat:       "2026-10-17T12:00:00.000Z",
				Exp:       "2026-10-24T12:00:00.000Z",
				Resources: []string{"ceramic://*"},
			},
			S: &core.CacaoSignature{T: core.SignatureTypeEIP191, S: "0x01"},
		},
		SessionKeySeed: "seed",
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := NewBase64Codec()

	raw, err := c.Encode(testSession())
	require.NoError(t, err)

	got, err := c.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, testSession(), got)
}

func TestDecodeRecordWrittenByBrowser(t *testing.T) {
	// the shape a browser SDK leaves in local storage
	record := `{"sessionKeySeed":"c2VlZA==","cacao":{"h":{"t":"eip4361"},"p":{"domain":"app.example","iat":"2026-10-17T12:00:00.000Z","iss":"did:pkh:eip155:1:0xAbC","aud":"did:key:z6Mk","version":"1","nonce":"x","exp":"2026-10-24T12:00:00.000Z","statement":"Give this application access to some of your data on Ceramic","resources":["ceramic://*"]},"s":{"t":"eip191","s":"0xdead"}}}`

	for name, enc := range map[string]*base64.Encoding{
		"std":     base64.StdEncoding,
		"raw std": base64.RawStdEncoding,
		"raw url": base64.RawURLEncoding,
	} {
		t.Run(name, func(t *testing.T) {
			s, err := NewBase64Codec().Decode(enc.EncodeToString([]byte(record)))
			require.NoError(t, err)
			assert.Equal(t, "did:pkh:eip155:1:0xAbC", s.Issuer())
			assert.Equal(t, "2026-10-24T12:00:00.000Z", s.Expiry())
			assert.Equal(t, "c2VlZA==", s.SessionKeySeed)
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	b64 := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

	tests := map[string]string{
		"empty":          "",
		"not base64":     "!!!not-base64!!!",
		"not json":       b64("hello world"),
		"json array":     b64(`[1,2,3]`),
		"no cacao":       b64(`{"session":"x"}`),
		"no issuer":      b64(`{"cacao":{"p":{"exp":"2026-10-24T12:00:00.000Z"}}}`),
		"no expiry":      b64(`{"cacao":{"p":{"iss":"did:pkh:eip155:1:0xabc"}}}`),
		"wrong iss type": b64(`{"cacao":{"p":{"iss":42,"exp":"2026-10-24T12:00:00.000Z"}}}`),
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewBase64Codec().Decode(raw)
			assert.ErrorIs(t, err, core.ErrMalformedSession)
		})
	}
}
