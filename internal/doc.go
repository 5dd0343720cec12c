// Package internal contains the core implementation packages for jsplus.
//
// # Package Organization
//
// The internal packages are organized by pipeline stage:
//
//   - scanner: JavaScript lexical scanning (strings, templates, regex, comments)
//   - transpile: ESM to CommonJS rewriting and CSS import inlining
//   - graph: Module discovery, identity, and network separation
//   - bundle: Bundle assembly and the embedded browser runtime
//   - minify: Tiered minification with fallback
//   - build: Build sessions, output writing, manifests, caching, and metrics
//   - config: Configuration loading and validation
//   - watcher: File system monitoring with debouncing
//   - server: Development server with live reload
//   - errors: Build error collection and reporting
//   - logging: Structured logging
//
// # Data Flow
//
// A build starts at the entry file. The graph package resolves every
// reachable module through the transpiler, splitting modules reached over
// the network boundary into their own bundles. The bundle package wraps
// each group of modules with the runtime, and the build package minifies
// and writes the results. The watcher triggers rebuilds and the server
// pushes reload messages to connected browsers.
package internal
