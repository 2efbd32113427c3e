package proxy

// DefaultPathPrefix is where the chat client expects the flow service.
const DefaultPathPrefix = "/api/langflow"

// Config is the proxy server configuration.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string

	// UpstreamURL of the flow service (e.g., "https://api.langflow.astra.datastax.com")
	UpstreamURL string

	// PathPrefix under which requests are forwarded; stripped before
	// forwarding. Defaults to DefaultPathPrefix.
	PathPrefix string
}
