// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle: loading a
// scene file, cooking a range of frames and reporting the results. It is
// decoupled from any specific entrypoint like a CLI or server.
package app
