// Package e2e provides end-to-end tests for the taskbot conversation loop.
//
// These tests drive the real stack over HTTP:
//  1. The platform verifies the webhook
//  2. A delivery arrives at /webhook
//  3. The dispatcher resolves it and mutates the SQLite store
//  4. The reply reaches a mocked Graph Send API
//
// Run with: go test -v ./e2e/...
//
// Skip in short mode: go test -short ./...
//
// # Test Structure
//
//   - workflow_test.go: conversation and failure-path tests
//   - stress_test.go: concurrent senders against one server
//   - mocks/graph.go: mock Graph Send API server
package e2e
