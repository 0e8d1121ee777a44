// =============================================================================
// Loyalty Normalizer - Main Entry Point
// =============================================================================
//
// USAGE:
//   normalizer process   - Normalize every export in the input directory
//   normalizer contacts  - Build a contacts file from a member list
//   normalizer validate  - Check configuration or a column mapping
//   normalizer serve     - Start the HTTP service
//   normalizer version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Decoders, normalizers, the ledger engine, HTTP server
//   - pkg/       : Shared file management utilities
//   - profiles/  : Per-source YAML profiles
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/loyalty-normalizer/cmd"
)

func main() {
	cmd.Execute()
}
