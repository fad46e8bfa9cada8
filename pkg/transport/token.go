package transport

// TokenProvider supplies the current bearer credential presented during the
// connection_init handshake. An empty string means no credential.
type TokenProvider interface {
	Token() string
}

// TokenProviderFunc adapts a function to the TokenProvider interface.
type TokenProviderFunc func() string

func (f TokenProviderFunc) Token() string { return f() }

// StaticToken returns a provider that always yields tok.
func StaticToken(tok string) TokenProvider {
	return TokenProviderFunc(func() string { return tok })
}
