// Package logger wraps zap to offer:
//   - a global sugared logger writing a colored console format to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Pipeline steps receive a context and pull the logger from it, so every
// message carries the name of the step that produced it. Stdout is left to
// the download progress line.
package logger
