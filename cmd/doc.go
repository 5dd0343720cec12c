// Package cmd provides the command-line interface for jsplus.
//
// # Available Commands
//
//   - build: Bundle an entry module and its separated modules once
//   - watch: Rebuild whenever a bundle source changes
//   - serve: Watch, rebuild and serve the output with live reload
//   - init: Write a default .jsplus.yml
//   - version: Show version information
//
// # Command Examples
//
//	// Bundle src/index.js into dist/index.js
//	jsplus build src/index.js
//
//	// Load separated bundles from a CDN
//	jsplus build --host https://cdn.example.com
//
//	// Develop with live reload on port 3000
//	jsplus serve --port 3000
//
// Configuration is read from .jsplus.yml, JSPLUS_* environment variables and
// flags, in increasing order of precedence.
package cmd
