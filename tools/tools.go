//go:build tools
// +build tools

// Package tools documents development tool dependencies with pinned versions.
// Install each tool with `go install <path>@<version>`.
//
// Pinned tool versions:
//   - mockgen: v0.6.0 (go.uber.org/mock/mockgen)
//   - goose: v3.26.0 (github.com/pressly/goose/v3/cmd/goose)
//   - golangci-lint: v1.64.8 (github.com/golangci/golangci-lint/cmd/golangci-lint)
//
// Note: CLI tools cannot be imported as packages. Use `go install` as above.
package tools

import (
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
	_ "github.com/pressly/goose/v3/cmd/goose"
	_ "go.uber.org/mock/gomock"
)
