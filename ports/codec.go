package ports

import "github.com/layer-3/orbisauth/core"

// SessionCodec converts between sessions and their cached text form
type SessionCodec interface {
	Encode(session core.Session) (string, error)
	Decode(raw string) (core.Session, error)
}
