package server

// Config is the HTTP service configuration.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string
}
