// Package main is the entry point for the SWEfoundry backend server.
//
// The server hosts persistent PTY-backed terminal sessions that survive
// viewer disconnects, streams them to WebSocket viewers with full history
// replay, and provides the project/ticket/copilot REST surface backing
// the web frontend.
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//
// Usage:
//
//	./server -port 8000 -db swefoundry.db
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown (sessions terminated, store closed)
package main
