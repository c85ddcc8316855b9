package core

import "strings"

// Message renders the Sign-In with Ethereum (EIP-4361) text of the payload.
// This is the exact byte string a wallet signs and a node verifies.
func (p CacaoPayload) Message() (string, error) {
	chainID, address, err := ParseIssuer(p.Iss)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(p.Domain)
	b.WriteString(" wants you to sign in with your Ethereum account:\n")
	b.WriteString(address)
	b.WriteString("\n\n")
	if p.Statement != "" {
		b.WriteString(p.Statement)
		b.WriteString("\n\n")
	}
	b.WriteString("URI: " + p.Aud + "\n")
	b.WriteString("Version: " + p.Version + "\n")
	b.WriteString("Chain ID: " + chainID + "\n")
	b.WriteString("Nonce: " + p.Nonce + "\n")
	b.WriteString("Issued At: " + p.Iat)
	if p.Exp != "" {
		b.WriteString("\nExpiration Time: " + p.Exp)
	}
	if p.Nbf != "" {
		b.WriteString("\nNot Before: " + p.Nbf)
	}
	if p.RequestID != "" {
		b.WriteString("\nRequest ID: " + p.RequestID)
	}
	if len(p.Resources) > 0 {
		b.WriteString("\nResources:")
		for _, r := range p.Resources {
			b.WriteString("\n- " + r)
		}
	}

	return b.String(), nil
}
